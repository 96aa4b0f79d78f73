package app

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"trivia-rank-service/internal/domain"
)

var validate = validator.New()

// validateStruct runs struct tag validation and reports failures as domain.ErrInvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.InvalidInput("%v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return domain.InvalidInput("invalid fields: %s", strings.Join(fields, ", "))
}
