package catalog

import "errors"

var (
	ErrDuplicateCourseID = errors.New("duplicate course id")
	ErrInvalidCourseID   = errors.New("invalid course id")
	ErrInvalidPrice      = errors.New("invalid course price")
	ErrEmptyCatalog      = errors.New("catalog has no courses")
)
