package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// Validator wraps validator/v10 with JSON field names and English messages.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New builds a Validator. Translation registration failures fall back to raw messages.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		trans = nil
	}
	return &Validator{validate: v, trans: trans}
}

// Struct validates s and returns a VALIDATION_ERROR carrying per-field messages.
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return v.wrap(err, "validation failed")
	}
	return nil
}

// FieldErrors maps a validation error to field path → message.
// Non-validation errors are reported under "detail".
func (v *Validator) FieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = v.message(fe)
		}
		return fields
	}
	fields["detail"] = err.Error()
	return fields
}

func (v *Validator) wrap(err error, message string) error {
	return appErrors.WithDetails(
		appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message),
		v.FieldErrors(err),
	)
}

func (v *Validator) message(fe validator.FieldError) string {
	if v.trans == nil {
		return fe.Error()
	}
	return fe.Translate(v.trans)
}

// fieldPath drops the root struct name from the namespace: "Req.sessions[0].kind" → "sessions[0].kind".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}
