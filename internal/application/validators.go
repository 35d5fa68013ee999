package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/galley/internal/domain"
)

// RegisterCatalogValidators registers the custom struct-tag validators used by
// catalog files: severity and extractor_ref.
func RegisterCatalogValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("severity", validateSeverityTag); err != nil {
		return fmt.Errorf("failed to register severity validator: %w", err)
	}
	if err := v.RegisterValidation("extractor_ref", validateExtractorRefTag); err != nil {
		return fmt.Errorf("failed to register extractor_ref validator: %w", err)
	}
	return nil
}

// validateSeverityTag accepts an empty value, which means the default severity.
func validateSeverityTag(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || domain.Severity(s).Valid()
}

// validateExtractorRefTag accepts an empty reference, which marks a criterion
// that is not wired yet.
func validateExtractorRefTag(fl validator.FieldLevel) bool {
	return domain.ExtractorRef(fl.Field().String()).Validate() == nil
}
