package crypto

import "errors"

var (
	ErrEmptyCourseID   = errors.New("course id is empty")
	ErrCourseIDTooLong = errors.New("course id does not fit in bytes16")
	ErrEmptyEmail      = errors.New("email is empty")
	ErrMalformedHash   = errors.New("malformed hash")
)
