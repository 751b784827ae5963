package auth

import (
	"fmt"

	"restaurant-hub/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateClaims(claims Claims) error {
	if err := validate.Struct(claims); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidBody, err)
	}
	return nil
}
