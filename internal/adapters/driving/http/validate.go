package httpx

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

var validate = validator.New()

// validateStruct checks validate tags and returns a KindInvalidInput error
// listing every violation.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.Error{Kind: domain.KindInvalidInput, Message: err.Error(), Err: domain.ErrInvalidInput}
	}

	var msgs []string
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		param := fe.Param()

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+param+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+param+" characters")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return &domain.Error{Kind: domain.KindInvalidInput, Message: strings.Join(msgs, ", "), Err: domain.ErrInvalidInput}
}
