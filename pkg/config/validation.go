package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// go-playground/validator handles the declarative checks via struct tags;
// rules that cannot be expressed in tags are checked explicitly afterwards.
//
// Note: log level normalization happens in ApplyDefaults, not here, so both
// uppercase and lowercase levels pass validation.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Exports) == 0 {
		return fmt.Errorf("exports: at least one export must be configured")
	}

	names := make(map[string]bool)
	for i, export := range cfg.Exports {
		if names[export.Name] {
			return fmt.Errorf("exports[%d]: duplicate export name %q", i, export.Name)
		}
		names[export.Name] = true
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics: listen_address is required when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
