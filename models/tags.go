package models

import (
	"wardrobeapi/outfits"

	"github.com/go-playground/validator"
)

// ValidateSeason accepts spring, summer, autumn, winter and all-season in any
// casing.
func ValidateSeason(fl validator.FieldLevel) bool {
	return outfits.IsSeason(fl.Field().String())
}

// RegisterValidations adds the custom tags used by the request models.
func RegisterValidations(v *validator.Validate) {
	v.RegisterValidation("platform", ValidatePlatform)
	v.RegisterValidation("season", ValidateSeason)
}
