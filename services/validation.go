package services

import (
	"fmt"

	"restaurant-hub/errors"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = validator.New()

// decodeBody unmarshals a command or ingest body and runs its validate tags.
// Every failure is reported as ErrInvalidBody.
func decodeBody[T any](raw []byte) (T, error) {
	var body T
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return body, fmt.Errorf("%w: %v", errors.ErrInvalidBody, err)
	}
	if err := validate.Struct(body); err != nil {
		return body, fmt.Errorf("%w: %v", errors.ErrInvalidBody, err)
	}
	return body, nil
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidBody, err)
	}
	return nil
}
