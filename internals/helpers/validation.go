package helper

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the project's custom tags.
// Field names in errors follow the json tag.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("ir_national_code", func(fl validator.FieldLevel) bool {
			return ValidNationalCode(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// ValidateStruct runs the validator and converts failures into a field ErrValidation.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		msg := fe.Field() + ": " + fe.Tag()
		if p := fe.Param(); p != "" {
			msg += "=" + p
		}
		return ValidationField(fe.Field(), msg)
	}
	return Validation(err.Error())
}

// ValidNationalCode checks the 10-digit Iranian national code checksum.
func ValidNationalCode(code string) bool {
	if len(code) != 10 {
		return false
	}
	sum := 0
	same := true
	for i := 0; i < 10; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != code[0] {
			same = false
		}
		if i < 9 {
			sum += int(c-'0') * (10 - i)
		}
	}
	if same {
		return false
	}
	check := int(code[9] - '0')
	r := sum % 11
	if r < 2 {
		return check == r
	}
	return check == 11-r
}
