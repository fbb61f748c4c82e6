package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "demandplanner/internal/errors"
)

var (
	driverIDPattern  = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
	projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	identPattern     = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// New returns a validator with the planner's custom tags registered and
// field names reported by their json tag
func New() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("driverid", isDriverID)
	v.RegisterValidation("bqproject", isProjectID)
	v.RegisterValidation("bqident", isIdentifier)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Struct validates s and converts failures to an API validation error
func Struct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: FormatFieldError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// FormatFieldError renders a readable message for one failed tag
func FormatFieldError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, param)
	case "driverid":
		return fmt.Sprintf("%s must be a lowercase driver identifier", field)
	case "bqproject":
		return fmt.Sprintf("%s may only contain letters, digits, '-' and '_'", field)
	case "bqident":
		return fmt.Sprintf("%s may only contain letters, digits and '_'", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isDriverID(fl validator.FieldLevel) bool {
	return driverIDPattern.MatchString(fl.Field().String())
}

func isProjectID(fl validator.FieldLevel) bool {
	return projectIDPattern.MatchString(fl.Field().String())
}

func isIdentifier(fl validator.FieldLevel) bool {
	return identPattern.MatchString(fl.Field().String())
}
