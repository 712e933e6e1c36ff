package domain

import "errors"

var (
	ErrAlreadyAssigned     = errors.New("product already has an active review task")
	ErrInvalidPriority     = errors.New("expertise priority out of range")
	ErrInvalidTaskPriority = errors.New("invalid task priority")
	ErrInvalidScope        = errors.New("invalid preference scope")
	ErrInvalidTransition   = errors.New("invalid task status transition")
	ErrNoCategories        = errors.New("no categories selected")
	ErrValidation          = errors.New("validation failed")
	ErrPartialFailure      = errors.New("some assignments could not be persisted")
	ErrReviewerExists      = errors.New("reviewer already exists")
	ErrReviewerNotFound    = errors.New("reviewer not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrTaskNotFound        = errors.New("review task not found")
	ErrPreferenceNotFound  = errors.New("expertise preference not found")
)
