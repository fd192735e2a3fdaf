package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediscan-triage-server/internal/catalog"
	"github.com/mediscan-triage-server/internal/domain"
	"github.com/mediscan-triage-server/internal/logging"
)

// TriageService runs the triage workflow for one request: symptom check,
// optional image validation, classification, recommendation.
//
// It holds only immutable collaborators and is safe for concurrent use.
type TriageService struct {
	logger      *logrus.Logger
	catalog     *catalog.Catalog
	classifier  domain.SymptomClassifier
	images      domain.ImageValidator
	recommender domain.Recommender
}

// NewTriageService wires the default classifier, image validator and
// recommender around cat.
func NewTriageService(logger *logrus.Logger, cat *catalog.Catalog) *TriageService {
	return &TriageService{
		logger:      logger,
		catalog:     cat,
		classifier:  NewSymptomClassifier(logger, cat),
		images:      NewImageValidator(logger),
		recommender: RecommendationGenerator{},
	}
}

// Catalog returns the catalog the service classifies against.
func (s *TriageService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Diagnose triages one symptom report.
//
// Blank symptoms fail with ErrEmptySymptoms before the upload is touched.
// Image failures come back as ErrInvalidContentType or ErrInvalidImage.
// Anything else is returned as an internal TriageError whose message keeps
// only the original error text.
func (s *TriageService) Diagnose(ctx context.Context, symptoms string, upload *domain.ImageUpload) (*domain.DiagnosisResponse, error) {
	startTime := time.Now()
	log := logging.FromContext(ctx, s.logger)

	if strings.TrimSpace(symptoms) == "" {
		log.Debug("Rejected empty symptom report")
		return nil, domain.ErrEmptySymptoms
	}

	var imageInfo *domain.ImageMetadata
	if upload != nil {
		meta, err := s.images.Validate(upload)
		if err != nil {
			triageErr := domain.WrapInternal(err)
			log.WithFields(logrus.Fields{
				"error_code":     triageErr.Kind,
				"image_filename": upload.Filename,
			}).WithError(err).Info("Image rejected")
			return nil, triageErr
		}
		imageInfo = meta
	}

	result := s.classifier.Classify(symptoms)
	recommendation := s.recommender.Recommend(result.Risk)

	response := &domain.DiagnosisResponse{
		Diagnosis:        result.Diagnosis,
		RiskLevel:        result.Risk,
		SymptomsAnalyzed: symptoms,
		ImageProcessed:   imageInfo != nil,
		Recommendation:   recommendation,
		ImageInfo:        imageInfo,
	}

	fields := logrus.Fields{
		"diagnosis":       response.Diagnosis,
		"risk_level":      response.RiskLevel,
		"symptoms_length": len(symptoms),
		"image_processed": response.ImageProcessed,
		"processing_time": time.Since(startTime),
	}
	if imageInfo != nil {
		for k, v := range imageInfo.LogFields() {
			fields[k] = v
		}
	}
	log.WithFields(fields).Info("Symptom triage completed")

	return response, nil
}

// Explain classifies symptoms without building a response, exposing which
// catalog category and phrase fired.
func (s *TriageService) Explain(symptoms string) domain.ClassificationResult {
	return s.classifier.Classify(symptoms)
}
