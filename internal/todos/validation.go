package todos

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// FieldError — ошибка одного поля формы.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors — упорядоченный список ошибок формы. Реализует error, чтобы
// сервис мог вернуть его как обычную ошибку, а handler достал через errors.As.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Get возвращает первое сообщение для поля (для шаблонов).
func (fe FieldErrors) Get(field string) string {
	for _, e := range fe {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

func (fe FieldErrors) Has(field string) bool {
	return fe.Get(field) != ""
}

// Only оставляет ошибки перечисленных полей; nil, если таких нет.
func (fe FieldErrors) Only(fields ...string) FieldErrors {
	var out FieldErrors
	for _, e := range fe {
		for _, f := range fields {
			if e.Field == f {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Пустая строка из одних пробелов — это тоже "не заполнено".
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// В ошибках используем имена полей формы, а не Go-имена.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate проверяет запрос и возвращает nil, если ошибок нет.
func Validate(req any) FieldErrors {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{{Field: "", Message: err.Error()}}
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: e.Field(), Message: fieldMessage(e)})
	}
	return out
}

var fieldLabels = map[string]string{
	"title":   "Title",
	"content": "Content",
	"author":  "Author",
}

func fieldMessage(e validator.FieldError) string {
	label, ok := fieldLabels[e.Field()]
	if !ok {
		label = e.Field()
	}
	switch e.Tag() {
	case "notblank", "required":
		return fmt.Sprintf("%s is required.", label)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, e.Param())
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}
