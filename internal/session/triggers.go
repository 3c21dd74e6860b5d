package session

// Field names a piece of the query that the user can change.
type Field int

const (
	FieldKeywords Field = iota
	FieldMode
	FieldFromDate
	FieldToDate
	FieldSources
	FieldOrderBy
)

func (f Field) String() string {
	switch f {
	case FieldKeywords:
		return "keywords"
	case FieldMode:
		return "mode"
	case FieldFromDate:
		return "from"
	case FieldToDate:
		return "to"
	case FieldSources:
		return "sources"
	case FieldOrderBy:
		return "order_by"
	default:
		return "unknown"
	}
}

// triggerSet lists the fields whose change re-runs the search on its own.
// Keywords are applied by the next explicit search.
var triggerSet = map[Field]bool{
	FieldSources:  true,
	FieldMode:     true,
	FieldOrderBy:  true,
	FieldFromDate: true,
	FieldToDate:   true,
}

// TriggerFields returns the fields in the trigger set, in declaration order.
func TriggerFields() []Field {
	var out []Field
	for f := FieldKeywords; f <= FieldOrderBy; f++ {
		if triggerSet[f] {
			out = append(out, f)
		}
	}
	return out
}

// IsTrigger reports whether a change to f dispatches a fetch.
func IsTrigger(f Field) bool {
	return triggerSet[f]
}
