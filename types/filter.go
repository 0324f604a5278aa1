package types

type FilterOperator string

const (
	FilterOperatorEquals         FilterOperator = "="
	FilterOperatorNotEquals      FilterOperator = "!="
	FilterOperatorLess           FilterOperator = "<"
	FilterOperatorGreater        FilterOperator = ">"
	FilterOperatorLessOrEqual    FilterOperator = "<="
	FilterOperatorGreaterOrEqual FilterOperator = ">="
)

func (operator FilterOperator) IsValidFilterOperator() bool {
	switch operator {
	case FilterOperatorEquals,
		FilterOperatorNotEquals,
		FilterOperatorLess,
		FilterOperatorGreater,
		FilterOperatorLessOrEqual,
		FilterOperatorGreaterOrEqual:
		return true
	default:
		return false
	}
}

// Filter is one condition of a remote search. A list of filters is combined
// with logical AND by the remote system.
type Filter struct {
	Field    string
	Operator FilterOperator
	Value    any
}

func Equals(field string, value any) Filter {
	return Filter{Field: field, Operator: FilterOperatorEquals, Value: value}
}
