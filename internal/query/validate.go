package query

import "errors"

var (
	ErrTooManySources  = errors.New("Sources cannot be more than three.")
	ErrNoSources       = errors.New("Sources cannot be zero.")
	ErrDateOrder       = errors.New("From Date should not be after To Date")
	ErrDuplicateSource = errors.New("Sources must be unique.")
)

// ValidationError is a user-correctable problem with a query. Its message is
// shown to the user verbatim.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string { return e.err.Error() }
func (e *ValidationError) Unwrap() error { return e.err }

func invalid(err error) error { return &ValidationError{err: err} }

// Validate checks whether q may be dispatched. Checks run in a fixed order and
// the first failure is returned.
func Validate(q Query) error {
	if len(q.Sources) > MaxSources {
		return invalid(ErrTooManySources)
	}
	if len(q.Sources) == 0 {
		return invalid(ErrNoSources)
	}
	if !q.From.IsZero() && !q.To.IsZero() && Day(q.From).After(Day(q.To)) {
		return invalid(ErrDateOrder)
	}
	return nil
}

// ValidateSourceIDs rejects a source list that names the same id twice.
func ValidateSourceIDs(sources []Source) error {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if seen[s.ID] {
			return invalid(ErrDuplicateSource)
		}
		seen[s.ID] = true
	}
	return nil
}
