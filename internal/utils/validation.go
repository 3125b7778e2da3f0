package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if label := f.Tag.Get("label"); label != "" {
				return label
			}
			return f.Name
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			return models.ValidDate(fl.Field().String())
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			return models.ValidClock(fl.Field().String())
		})
		_ = v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
			return models.IsTimeSlot(fl.Field().String())
		})
		_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// StrongPassword requires 12+ characters with upper, lower, digit and
// symbol, and at most MaxPasswordBytes bytes.
func StrongPassword(p string) bool {
	if len([]rune(p)) < 12 || len(p) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// Validate performs validation on a struct and returns a validation error
// listing every violation.
func Validate(s interface{}) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	return apperrors.Validation(FormatValidationError(err))
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, describe(e))
	}
	return strings.Join(messages, ", ")
}

func describe(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "email":
		return field + " must be a valid email address"
	case "uuid", "uuid4":
		return field + " must be a valid id"
	case "isodate":
		return field + " must be a calendar date in YYYY-MM-DD form"
	case "clock":
		return field + " must be a time in HH:MM form"
	case "slot":
		return field + " must be one of " + strings.Join(models.TimeSlots, ", ")
	case "strongpassword":
		return fmt.Sprintf("%s must be 12 to %d characters with upper and lower case letters, a number and a symbol", field, MaxPasswordBytes)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, e.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
}

// BindJSON binds the request body. If the body is malformed it sends a
// BadRequest response and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if !BindJSON(c, obj) {
		return false
	}
	if err := Validate(obj); err != nil {
		BadRequest(c, apperrors.PublicMessage(err))
		return false
	}
	return true
}
