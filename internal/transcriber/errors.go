package transcriber

import "errors"

var (
	// ErrNoSegment is returned by Infer when no segment was opened with Reset.
	ErrNoSegment = errors.New("transcriber: no active segment")
	// ErrSegmentFailed is returned by Infer after a decode failure until the
	// next Reset.
	ErrSegmentFailed = errors.New("transcriber: segment failed")
)

// InferenceError wraps a backend failure for the current segment.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	if e == nil || e.Err == nil {
		return "inference failed"
	}
	return "inference failed: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewInferenceError(err error) error {
	if err == nil {
		return nil
	}
	return &InferenceError{Err: err}
}

func IsInferenceError(err error) bool {
	var inf *InferenceError
	return errors.As(err, &inf)
}
