package models

import "errors"

// Sentinel errors for the credit/photo workflow. Handlers map these to HTTP
// statuses; services never import gin.
var (
	ErrDuplicateIdentity   = errors.New("email or username already registered")
	ErrInvalidCredential   = errors.New("incorrect username or password")
	ErrInvalidStyle        = errors.New("invalid style")
	ErrInvalidPlan         = errors.New("invalid plan")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUpstreamFailure     = errors.New("no output from AI model")
	ErrStorageFailure      = errors.New("failed to persist file")
	ErrNotFound            = errors.New("not found")
)
