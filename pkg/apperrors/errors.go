package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyClaimed  = errors.New("feedback item already claimed")
	ErrInvalidStatus   = errors.New("invalid feedback status")
	ErrInquiryInactive = errors.New("inquiry is not active")
)
