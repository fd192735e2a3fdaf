package service

import "github.com/mediscan-triage-server/internal/domain"

// Advice returned for each risk level
const (
	AdviceHighRisk   = "Seek immediate medical attention. Contact your healthcare provider or visit the emergency room."
	AdviceMediumRisk = "Schedule an appointment with your healthcare provider within the next few days."
	AdviceLowRisk    = "Monitor symptoms and maintain good health practices. Consult a doctor if symptoms worsen."
)

// RecommendationGenerator maps a risk level to fixed advice text.
type RecommendationGenerator struct{}

// Recommend returns the advice for risk. Unknown levels get the low-risk
// advice.
func (RecommendationGenerator) Recommend(risk domain.RiskLevel) string {
	switch risk {
	case domain.RiskHigh:
		return AdviceHighRisk
	case domain.RiskMedium:
		return AdviceMediumRisk
	default:
		return AdviceLowRisk
	}
}
