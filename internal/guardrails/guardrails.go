package guardrails

import "errors"

// Validation failures surfaced to the caller. Each denial names its
// reason; none are swallowed.
var (
	ErrQueryTooLong   = errors.New("query too long")
	ErrUnsafeContent  = errors.New("query contains sensitive keyword")
	ErrNoDocuments    = errors.New("no documents available for querying")
	ErrOutputRejected = errors.New("answer failed output validation")
)

// InputState carries the session facts input checks may consult.
type InputState struct {
	DocumentsLoaded bool
}

// InputStep is one ordered link of the input chain. Exactly one of
// Check and Transform is set: a Check is a pure predicate that passes
// or fails with a reason, a Transform rewrites the working query.
type InputStep struct {
	Name      string
	Check     func(query string, st InputState) error
	Transform func(query string) string
}

// OutputStep is one ordered link of the output chain, validating the
// generated answer against the retrieved source texts.
type OutputStep struct {
	Name  string
	Check func(answer string, sources []string) error
}
