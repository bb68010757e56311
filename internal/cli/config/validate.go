package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/ris"
)

// configValidate checks Config values after loading.
// Initialized in init() with the custom validators.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()

	// Report koanf keys rather than Go field names.
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = configValidate.RegisterValidation("encoding", validateEncoding)
	configValidate.RegisterStructValidation(validateSettings, core.ProjectSettings{})
}

// SupportedEncodings lists the encodings accepted for save-back.
var SupportedEncodings = []string{ris.EncodingUTF8, ris.EncodingUTF8BOM, ris.EncodingCP949, ris.EncodingEUCKR}

func validateEncoding(fl validator.FieldLevel) bool {
	return slices.Contains(SupportedEncodings, strings.ToLower(fl.Field().String()))
}

func validateSettings(sl validator.StructLevel) {
	s, ok := sl.Current().Interface().(core.ProjectSettings)
	if !ok {
		return
	}
	if !slices.Contains(core.SortModes, s.SortMode) {
		sl.ReportError(s.SortMode, "sort", "SortMode", "sortmode", "")
	}
	if strings.TrimSpace(s.StyleID) == "" {
		sl.ReportError(s.StyleID, "style", "StyleID", "required", "")
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "sortmode":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, strings.Join(core.SortModes, " "), fe.Value())
	case "encoding":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, strings.Join(SupportedEncodings, " "), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", key, fe.Tag())
	}
}
