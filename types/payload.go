package types

// Payload is a target create/update body, or the representation the target
// returned for a stored entity.
type Payload map[string]any

func (payload Payload) Name() string {
	return Record(payload).String("name")
}

func (payload Payload) String(key string) string {
	return Record(payload).String(key)
}

func (payload Payload) Float(key string) float64 {
	return Record(payload).Float(key)
}

// Clone copies the top level of the payload so callers can pre-process it
// without touching the original.
func (payload Payload) Clone() Payload {
	clone := make(Payload, len(payload))
	for key, value := range payload {
		clone[key] = value
	}
	return clone
}

// LinkedPayload is a referenced entity that must exist before the owning
// payload is created. It is resolved by name: created when missing, updated
// only when UpdateExisting is set, and replaced by its name in the owner.
type LinkedPayload struct {
	DocType        TargetDocType
	Name           string
	UpdateExisting bool
	Fields         Payload
}
