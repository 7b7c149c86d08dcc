package memutils

import cerrors "github.com/cockroachdb/errors"

// WithClass attaches an error class such as ErrInvalidUsage to err. The class is reported by the
// standard library's errors.Is as well as cockroachdb's, and err remains the cause.
func WithClass(err error, class error) error {
	if err == nil {
		return nil
	}
	return cerrors.Mark(&classError{cause: err, class: class}, class)
}

type classError struct {
	cause error
	class error
}

func (e *classError) Error() string { return e.cause.Error() }

func (e *classError) Unwrap() error { return e.cause }

func (e *classError) Is(target error) bool { return target == e.class }
