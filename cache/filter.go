package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerlift/erp-migrator/types"
)

func matchesAll(record types.Record, filters []types.Filter) (bool, error) {
	for _, filter := range filters {
		matched, err := matches(record, filter)
		if err != nil || !matched {
			return false, err
		}
	}
	return true, nil
}

// matches compares numerically when both sides parse as numbers and falls
// back to string comparison otherwise.
func matches(record types.Record, filter types.Filter) (bool, error) {
	if !filter.Operator.IsValidFilterOperator() {
		return false, fmt.Errorf("unsupported filter operator %q", filter.Operator)
	}

	left := record.String(filter.Field)
	right := fmt.Sprint(filter.Value)

	var compared int
	leftNumber, leftErr := strconv.ParseFloat(left, 64)
	rightNumber, rightErr := strconv.ParseFloat(right, 64)
	switch {
	case leftErr == nil && rightErr == nil:
		switch {
		case leftNumber < rightNumber:
			compared = -1
		case leftNumber > rightNumber:
			compared = 1
		}
	default:
		compared = strings.Compare(left, right)
	}

	switch filter.Operator {
	case types.FilterOperatorEquals:
		return compared == 0, nil
	case types.FilterOperatorNotEquals:
		return compared != 0, nil
	case types.FilterOperatorLess:
		return compared < 0, nil
	case types.FilterOperatorGreater:
		return compared > 0, nil
	case types.FilterOperatorLessOrEqual:
		return compared <= 0, nil
	default:
		return compared >= 0, nil
	}
}
