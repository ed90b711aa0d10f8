package service

import (
	"errors"
	"fmt"

	"personaquiz/internal/inference"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("access denied")
	ErrSessionLimit    = errors.New("chat session limit reached")
	ErrParse           = errors.New("malformed analysis response")
	ErrExternalService = errors.New("text generation unavailable")
)

// generationErr tags terminal inference failures with ErrExternalService and
// passes context errors through unchanged.
func generationErr(err error) error {
	var se *inference.ServiceError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	return err
}
