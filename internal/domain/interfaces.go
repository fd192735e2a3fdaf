package domain

import (
	"context"
)

// SymptomClassifier maps normalized symptom text to a triage outcome
type SymptomClassifier interface {
	Classify(text string) ClassificationResult
}

// ImageValidator checks an uploaded file and extracts its metadata
type ImageValidator interface {
	Validate(upload *ImageUpload) (*ImageMetadata, error)
}

// Recommender returns the advice text for a risk level
type Recommender interface {
	Recommend(risk RiskLevel) string
}

// TriageProcessor runs one triage request end to end
type TriageProcessor interface {
	Diagnose(ctx context.Context, symptoms string, upload *ImageUpload) (*DiagnosisResponse, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetLoggingConfig() *LoggingConfig
	Reload() error
	Validate() error
}
