package util

import "errors"

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCourseNotFound   = errors.New("course not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this course")
	ErrStorageFailure   = errors.New("storage failure")
	ErrStudentIDTaken   = errors.New("student id already assigned to another profile")
)
