package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their TOML keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fieldMessage(fe)
			}
			return errs.New(errs.ErrCodeInvalidConfig, "%s", strings.Join(msgs, "; "))
		}
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "validate config")
	}
	if (len(c.Mux.EdgeRates) == 0) != (len(c.Mux.MuxRates) == 0) {
		return errs.New(errs.ErrCodeInvalidConfig, "mux.edge_rates and mux.mux_rates must be set together")
	}
	if len(c.EdgeRates) == 0 && len(c.Mux.EdgeRates) == 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "no rates configured")
	}
	for _, name := range c.Circuits {
		if err := errs.ValidateCircuitName(name); err != nil {
			return err
		}
	}
	return nil
}

// fieldMessage renders one failure as "key: reason".
func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "required_if":
		return field + ": is required for this backend"
	case "gte":
		return fmt.Sprintf("%s: must be >= %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s: must be <= %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "contains":
		return fmt.Sprintf("%s: must contain %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", field, fe.Tag())
	}
}
