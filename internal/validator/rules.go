package validator

import (
	"log"

	"cvbuilder_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует все кастомные функции валидации
func registerCustomRules(v *validator.Validate) {
	// Если правило не удалось зарегистрировать, приложение не должно запускаться
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-cv-template", validateCVTemplate)
	mustRegister("is-subscription-tier", validateSubscriptionTier)
	mustRegister("is-subscription-plan", validateSubscriptionPlan)
}

// Пустые значения пропускаем, для них есть 'required'

func validateCVTemplate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.CVTemplate(value).IsValid()
}

func validateSubscriptionTier(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.SubscriptionTier(value).IsValid()
}

func validateSubscriptionPlan(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.SubscriptionPlan(value).IsValid()
}
