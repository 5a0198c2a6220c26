package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrValidation         = errors.New("validation failed")
	ErrUnknownEnvironment = errors.New("environment is unknown")
	ErrCaseNotFound       = errors.New("diagnostic case not found")
	ErrPatternNotFound    = errors.New("diagnostic pattern not found")
)
