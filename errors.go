package cobweb

import "fmt"

// Sentinel errors returned by the public entry points (§7: invalid config
// and empty inference input are rejected at entry, not asserted).
var (
	ErrInvalidContextKey      = fmt.Errorf("cobweb: only the symmetric_window context key is supported")
	ErrNonPositiveContextSize = fmt.Errorf("cobweb: context_size must be positive")
	ErrEmptyInferenceInput    = fmt.Errorf("cobweb: infer_from_context needs at least two instances")
	ErrMissingAnchor          = fmt.Errorf("cobweb: infer_from_context needs exactly one nil anchor instance")
	ErrContextPrediction      = fmt.Errorf("cobweb: prediction of the contextual attribute itself is not supported")
)

// InvariantError signals a programmer error: a data-model invariant (§3,
// §8) was found violated, or an operation was asked to do something the
// contract says is impossible (e.g. two_best_children on a leaf). These are
// not recoverable; callers should not attempt to continue the tree after
// catching one via recover.
type InvariantError struct {
	Tag     string // e.g. "I5", "I6", "logic"
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("cobweb: invariant %s violated: %s", e.Tag, e.Message)
}

func assertInvariant(cond bool, tag, message string, args ...any) {
	if cond {
		return
	}
	panic(&InvariantError{Tag: tag, Message: fmt.Sprintf(message, args...)})
}
