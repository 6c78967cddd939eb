package errors

import (
	"github.com/pingcap/errors"
)

// Is reports whether err or any error in its cause chain is a target error.
// Unlike target.Equal it still matches when target wraps another error.
func Is(err error, target *errors.Error) bool {
	if target.Equal(err) {
		return true
	}
	for err != nil {
		if e, ok := err.(*errors.Error); ok && e.RFCCode() == target.RFCCode() {
			return true
		}
		next := unwrapOnce(err)
		if next == err {
			return false
		}
		err = next
	}
	return false
}

func unwrapOnce(err error) error {
	switch e := err.(type) {
	case interface{ Cause() error }:
		return e.Cause()
	case interface{ Unwrap() error }:
		return e.Unwrap()
	}
	return nil
}
