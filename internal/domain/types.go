// Package domain contains the core entities for symptom triage: the
// diagnosis labels and risk levels produced by the classifier, the image
// metadata extracted from optional uploads, and the response envelope
// returned to callers.
//
// Triage here means sorting a free-text report into an urgency tier. It is
// not a medical diagnosis.
package domain

import (
	"bytes"
	"io"
)

// Diagnosis is the categorical triage outcome for a symptom report.
type Diagnosis string

const (
	DiagnosisHealthy                 Diagnosis = "Healthy"
	DiagnosisInfected                Diagnosis = "Infected"
	DiagnosisImmediateAttention      Diagnosis = "Requires Immediate Medical Attention"
	DiagnosisConsultationRecommended Diagnosis = "Medical Consultation Recommended"
)

// RiskLevel is the triage severity attached to a diagnosis.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// IsValid reports whether the diagnosis is one of the known labels.
func (d Diagnosis) IsValid() bool {
	switch d {
	case DiagnosisHealthy, DiagnosisInfected, DiagnosisImmediateAttention, DiagnosisConsultationRecommended:
		return true
	default:
		return false
	}
}

// String returns the string representation of the diagnosis.
func (d Diagnosis) String() string {
	return string(d)
}

// Risk returns the risk level that a diagnosis always carries. Risk is never
// chosen independently of the diagnosis.
func (d Diagnosis) Risk() RiskLevel {
	switch d {
	case DiagnosisInfected, DiagnosisImmediateAttention:
		return RiskHigh
	case DiagnosisConsultationRecommended:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsValid reports whether the risk level is Low, Medium or High.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// ClassificationResult is the output of the symptom classifier.
//
// MatchedCategory and MatchedPhrase record which catalog entry fired. They
// are empty for a Healthy result and are not part of the HTTP response.
type ClassificationResult struct {
	Diagnosis       Diagnosis `json:"diagnosis"`
	Risk            RiskLevel `json:"riskLevel"`
	MatchedCategory string    `json:"matched_category,omitempty"`
	MatchedPhrase   string    `json:"matched_phrase,omitempty"`
}

// LogFields returns structured logging fields for the classification.
func (c ClassificationResult) LogFields() map[string]any {
	return map[string]any{
		"diagnosis":        string(c.Diagnosis),
		"risk_level":       string(c.Risk),
		"matched_category": c.MatchedCategory,
	}
}

// ImageUpload is an uploaded file part as handed over by the transport. A
// nil *ImageUpload means no image was supplied. Open is called at most once,
// and only after the symptom text has been accepted.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// NewImageUpload wraps an in-memory payload.
func NewImageUpload(filename, contentType string, data []byte) *ImageUpload {
	return &ImageUpload{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ImageMetadata describes a successfully decoded image.
type ImageMetadata struct {
	Filename string
	Width    int
	Height   int
	Format   string
	Mode     string
}

// DiagnosisResponse is the envelope returned for a successful triage request.
type DiagnosisResponse struct {
	Diagnosis        Diagnosis      `json:"diagnosis"`
	RiskLevel        RiskLevel      `json:"riskLevel"`
	SymptomsAnalyzed string         `json:"symptoms_analyzed"`
	ImageProcessed   bool           `json:"image_processed"`
	Recommendation   string         `json:"recommendation"`
	ImageInfo        *ImageMetadata `json:"image_info,omitempty"`
}
