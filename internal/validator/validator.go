package validator

import (
	"reflect"
	"strings"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with the service's custom rules
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags only and returns the raw validator error
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates struct tags and converts failures to ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	err := v.ValidateStruct(s)
	if err == nil {
		return nil
	}
	if errs := ToValidationErrors(err); len(errs) > 0 {
		return errs
	}
	return err
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("bd_phone", validatePhone)
	validate.RegisterValidation("option_letter", validateOptionLetter)
	validate.RegisterValidation("submission_reason", validateSubmissionReason)
	validate.RegisterValidation("leaderboard_variant", validateLeaderboardVariant)
	validate.RegisterValidation("otp_code", validateOtpCode)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validatePhone(fl validator.FieldLevel) bool {
	return IsValidPhone(fl.Field().String())
}

// validateOptionLetter accepts nil pointers; a nil selection clears the answer.
func validateOptionLetter(fl validator.FieldLevel) bool {
	_, ok := models.LetterIndex(fl.Field().String())
	return ok
}

func validateSubmissionReason(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Manual", "TimeUp", "TabSwitch":
		return true
	}
	return false
}

func validateLeaderboardVariant(fl validator.FieldLevel) bool {
	switch models.LeaderboardVariant(fl.Field().String()) {
	case models.LeaderboardOverall, models.LeaderboardWeekly, models.LeaderboardStreak:
		return true
	}
	return false
}

func validateOtpCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
