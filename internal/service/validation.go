// validation.go — проверка входных данных сервисов через go-playground/validator.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/bigkaa/scoreteam/internal/domain/rbac"
)

// Ограничения значения типа оценки.
var (
	minScoreValue  = decimal.NewFromInt(-1000)
	maxScoreValue  = decimal.NewFromInt(1000)
	scoreValueStep = decimal.RequireFromString("0.05")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В ошибках используем имена полей из json-тегов
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return rbac.IsValidRole(fl.Field().String())
	})

	return v
}

// validateStruct проверяет структуру и переводит ошибки validator в *ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	out := &ValidationError{}
	for _, fe := range ve {
		out.Add(fe.Field(), fieldMessage(fe))
	}
	return out
}

// fieldMessage формирует сообщение об ошибке поля.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("минимальная длина — %s символов", fe.Param())
		}
		return "минимальное значение — " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("максимальная длина — %s символов", fe.Param())
		}
		return "максимальное значение — " + fe.Param()
	case "gt":
		return "должно быть больше " + fe.Param()
	case "email":
		return "некорректный email"
	case "role":
		return "некорректная роль: допустимые значения — " + strings.Join(rbac.Roles(), ", ")
	default:
		return "некорректное значение"
	}
}

// validateScoreValue проверяет диапазон и шаг значения типа оценки.
func validateScoreValue(v decimal.Decimal) string {
	if v.LessThan(minScoreValue) || v.GreaterThan(maxScoreValue) {
		return fmt.Sprintf("значение должно быть в диапазоне от %s до %s", minScoreValue, maxScoreValue)
	}
	if !v.Mod(scoreValueStep).IsZero() {
		return "значение должно быть кратно " + scoreValueStep.String()
	}
	return ""
}

// trimPtr обрезает пробелы; пустая строка превращается в nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
