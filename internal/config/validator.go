// Package config provides configuration management for the report engine.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error with user-friendly message.
type ValidationError struct {
	Field   string      // Field path (e.g., "ledger.postgrest.endpoint")
	Tag     string      // Validation tag that failed (e.g., "required", "url")
	Value   interface{} // Actual value that failed validation
	Message string      // User-friendly error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// validate is the package-level validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Empty timezone is allowed and falls back to the default
	validate.RegisterValidation("timezone", validateTimezone)
}

// Validate validates the configuration and returns user-friendly error messages.
func Validate(cfg *Config) error {
	var validationErrors ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, &ValidationError{
					Field:   formatFieldName(fe.Namespace()),
					Tag:     fe.Tag(),
					Value:   fe.Value(),
					Message: translateError(fe),
				})
			}
		}
	}

	if errs := validateLimits(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if errs := validateLedgerDriver(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if errs := validateRunsDriver(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func validateTimezone(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// validateLimits checks that the interactive run ceiling does not exceed the
// export ceiling.
func validateLimits(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.Reports.RunLimit > cfg.Reports.SpreadsheetLimit {
		errors = append(errors, &ValidationError{
			Field:   "reports.run_limit",
			Tag:     "limit_order",
			Value:   fmt.Sprintf("run_limit=%d, spreadsheet_limit=%d", cfg.Reports.RunLimit, cfg.Reports.SpreadsheetLimit),
			Message: fmt.Sprintf("run_limit (%d) must not exceed spreadsheet_limit (%d)", cfg.Reports.RunLimit, cfg.Reports.SpreadsheetLimit),
		})
	}

	return errors
}

// validateLedgerDriver checks the fields required by the selected ledger driver.
func validateLedgerDriver(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	switch cfg.Ledger.Driver {
	case LedgerDriverPostgREST:
		if cfg.Ledger.PostgREST.Endpoint == "" {
			errors = append(errors, &ValidationError{
				Field:   "ledger.postgrest.endpoint",
				Tag:     "required_with_driver",
				Value:   "",
				Message: "endpoint is required when ledger.driver is postgrest",
			})
		}
	case LedgerDriverFixtures:
		if cfg.Ledger.Fixtures.Path == "" {
			errors = append(errors, &ValidationError{
				Field:   "ledger.fixtures.path",
				Tag:     "required_with_driver",
				Value:   "",
				Message: "path is required when ledger.driver is fixtures",
			})
		}
	}

	return errors
}

// validateRunsDriver checks the fields required by the selected run store.
func validateRunsDriver(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.Runs.Driver == RunsDriverSQLite && cfg.Runs.SQLite.Path == "" {
		errors = append(errors, &ValidationError{
			Field:   "runs.sqlite.path",
			Tag:     "required_with_driver",
			Value:   "",
			Message: "path is required when runs.driver is sqlite",
		})
	}

	if cfg.Runs.StaleAfter < 0 {
		errors = append(errors, &ValidationError{
			Field:   "runs.stale_after",
			Tag:     "gte",
			Value:   cfg.Runs.StaleAfter,
			Message: "stale_after must not be negative",
		})
	}

	return errors
}

// formatFieldName converts the validator field namespace to a user-friendly format.
// Example: "Config.Ledger.PostgREST.Endpoint" -> "ledger.postgrest.endpoint"
func formatFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}

	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}

	return strings.Join(parts, ".")
}

// translateError converts a validator.FieldError to a user-friendly message.
func translateError(fe validator.FieldError) string {
	field := formatFieldName(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return fmt.Sprintf("invalid URL format: %v", fe.Value())
	case "gte":
		return fmt.Sprintf("value must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", fe.Param())
	case "timezone":
		return fmt.Sprintf("invalid timezone: %v", fe.Value())
	default:
		return fmt.Sprintf("validation failed on '%s' tag for field '%s'", fe.Tag(), field)
	}
}
