package queue

import "errors"

var (
	ErrDuplicateJob = errors.New("job already exists")
	ErrJobNotFound  = errors.New("job not found")
	ErrInvalidJobID = errors.New("job id is required")
)
