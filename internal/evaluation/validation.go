package evaluation

import (
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// MaxModels is the largest number of models a run may compare.
const MaxModels = 3

// ValidationError reports which submission field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// register function to get tag name from json tags
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// toValidationError maps the first struct validation failure to the
// user-facing message of the matching field.
func toValidationError(req SubmitRequest, fe validator.FieldError) *ValidationError {
	switch field := fe.Field(); {
	case field == "useCaseId":
		return &ValidationError{Field: "useCaseId", Message: "Invalid use case: " + req.UseCaseID}
	case field == "models" && fe.Tag() == "unique":
		return &ValidationError{Field: "models", Message: "Each model can only be selected once"}
	case field == "models":
		return &ValidationError{Field: "models", Message: fmt.Sprintf("Select 1-%d models to compare", MaxModels)}
	case strings.HasPrefix(field, "models["):
		return &ValidationError{Field: "models", Message: fmt.Sprintf("Invalid model: %v", fe.Value())}
	default:
		return &ValidationError{Field: field, Message: fe.Error()}
	}
}
