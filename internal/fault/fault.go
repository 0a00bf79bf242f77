package fault

import (
	"errors"
	"fmt"
)

// ErrBadUser is a failure the user can correct: bad credentials, a name
// taken by someone else, an ambiguous distribution and so on. The run halts
// without attempting any rollback.
type ErrBadUser struct {
	Msg string
}

func (e *ErrBadUser) Error() string {
	return e.Msg
}

// ErrPrecondition is raised before any remote side effect when the local
// inputs are unusable, e.g. the folder to sync does not exist.
type ErrPrecondition struct {
	Msg string
}

func (e *ErrPrecondition) Error() string {
	return e.Msg
}

func BadUser(format string, args ...any) error {
	return &ErrBadUser{
		Msg: fmt.Sprintf(format, args...),
	}
}

func Precondition(format string, args ...any) error {
	return &ErrPrecondition{
		Msg: fmt.Sprintf(format, args...),
	}
}

// IsUserError reports whether err is user-correctable. Anything else is a
// system error.
func IsUserError(err error) bool {
	var baduser *ErrBadUser
	if errors.As(err, &baduser) {
		return true
	}
	var precondition *ErrPrecondition
	return errors.As(err, &precondition)
}
