package services

import (
	"strings"

	"photopro/models"
)

// PlanCredits returns the credit balance a plan grants. Unknown plans fall
// back to the free tier.
func PlanCredits(plan string) int {
	switch strings.ToLower(plan) {
	case models.PlanPro:
		return models.CreditsPro
	case models.PlanEnterprise:
		return models.CreditsEnterprise
	default:
		return models.CreditsFree
	}
}

func IsValidPlan(plan string) bool {
	p := strings.ToLower(plan)
	return p == models.PlanFree || p == models.PlanPro || p == models.PlanEnterprise
}
