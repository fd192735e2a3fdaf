package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mediscan-triage-server/internal/catalog"
	"github.com/mediscan-triage-server/internal/domain"
)

// SymptomClassifier assigns a diagnosis to symptom text by keyword lookup.
//
// Categories are tried in catalog order and the first one with any phrase
// contained in the lower-cased text wins. There is no scoring: a single hit
// in a higher tier outranks any number of hits below it.
type SymptomClassifier struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
}

// NewSymptomClassifier creates a classifier over the given catalog
func NewSymptomClassifier(logger *logrus.Logger, cat *catalog.Catalog) *SymptomClassifier {
	return &SymptomClassifier{
		logger:  logger,
		catalog: cat,
	}
}

// Classify returns the triage outcome for non-empty symptom text.
func (c *SymptomClassifier) Classify(text string) domain.ClassificationResult {
	normalized := strings.ToLower(text)

	cat, phrase, ok := c.catalog.Match(normalized)
	if !ok {
		return domain.ClassificationResult{
			Diagnosis: domain.DiagnosisHealthy,
			Risk:      domain.DiagnosisHealthy.Risk(),
		}
	}

	result := domain.ClassificationResult{
		Diagnosis:       cat.Diagnosis,
		Risk:            cat.Risk(),
		MatchedCategory: cat.Name,
		MatchedPhrase:   phrase,
	}

	c.logger.WithFields(logrus.Fields(result.LogFields())).Debug("Symptom category matched")

	return result
}
