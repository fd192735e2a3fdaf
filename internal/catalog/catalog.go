// Package catalog holds the keyword catalog used by the symptom classifier:
// an ordered list of categories, each mapping a set of trigger phrases to a
// diagnosis. Category order is classification priority.
//
// A Catalog is immutable once built. Accessors hand out copies so callers
// cannot reorder categories or edit phrases at runtime.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mediscan-triage-server/internal/domain"
)

// Category names used by the built-in catalog
const (
	CategoryInfection  = "infection"
	CategoryHighRisk   = "high_risk"
	CategoryMediumRisk = "medium_risk"
)

var (
	ErrEmptyCatalog      = errors.New("catalog has no categories")
	ErrDuplicateCategory = errors.New("duplicate category name")
	ErrInvalidCategory   = errors.New("invalid category")
)

// Category is one priority tier of the catalog.
type Category struct {
	Name      string           `json:"name" yaml:"name"`
	Diagnosis domain.Diagnosis `json:"diagnosis" yaml:"diagnosis"`
	Phrases   []string         `json:"phrases" yaml:"phrases"`
}

// Risk returns the risk level implied by the category's diagnosis.
func (c Category) Risk() domain.RiskLevel {
	return c.Diagnosis.Risk()
}

// Catalog is an immutable, priority-ordered set of categories.
type Catalog struct {
	categories []Category
}

// New validates the categories and builds a catalog. Phrases are lower-cased
// and trimmed so that they compare against normalized symptom text.
func New(categories []Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(categories))
	built := make([]Category, 0, len(categories))

	for i, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", ErrInvalidCategory, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, name)
		}
		seen[name] = true

		if !cat.Diagnosis.IsValid() || cat.Diagnosis == domain.DiagnosisHealthy {
			return nil, fmt.Errorf("%w: %s maps to unsupported diagnosis %q", ErrInvalidCategory, name, cat.Diagnosis)
		}
		if len(cat.Phrases) == 0 {
			return nil, fmt.Errorf("%w: %s has no phrases", ErrInvalidCategory, name)
		}

		phrases := make([]string, 0, len(cat.Phrases))
		for _, p := range cat.Phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				return nil, fmt.Errorf("%w: %s contains an empty phrase", ErrInvalidCategory, name)
			}
			phrases = append(phrases, p)
		}

		built = append(built, Category{
			Name:      name,
			Diagnosis: cat.Diagnosis,
			Phrases:   phrases,
		})
	}

	return &Catalog{categories: built}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCategories())
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// Categories returns a copy of the categories in priority order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Category{
			Name:      cat.Name,
			Diagnosis: cat.Diagnosis,
			Phrases:   append([]string(nil), cat.Phrases...),
		}
	}
	return out
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	return len(c.categories)
}

// PhraseCount returns the total number of phrases across all categories.
func (c *Catalog) PhraseCount() int {
	n := 0
	for _, cat := range c.categories {
		n += len(cat.Phrases)
	}
	return n
}

// Match returns the first category, in priority order, with a phrase
// contained in text, along with that phrase. text must already be
// lower-cased. Containment is plain substring search, so "pain" also
// matches inside "painting".
func (c *Catalog) Match(text string) (Category, string, bool) {
	for _, cat := range c.categories {
		for _, phrase := range cat.Phrases {
			if strings.Contains(text, phrase) {
				return cat, phrase, true
			}
		}
	}
	return Category{}, "", false
}

// Summary returns the category names with their phrase counts, in priority
// order.
func (c *Catalog) Summary() []map[string]any {
	out := make([]map[string]any, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, map[string]any{
			"name":       cat.Name,
			"diagnosis":  string(cat.Diagnosis),
			"risk_level": string(cat.Risk()),
			"phrases":    len(cat.Phrases),
		})
	}
	return out
}

func defaultCategories() []Category {
	return []Category{
		{
			Name:      CategoryInfection,
			Diagnosis: domain.DiagnosisInfected,
			Phrases: []string{
				"infection", "infected", "fever", "pus", "inflammation",
				"swelling", "redness", "pain", "discharge", "wound",
				"bacteria", "virus", "sepsis", "abscess",
			},
		},
		{
			Name:      CategoryHighRisk,
			Diagnosis: domain.DiagnosisImmediateAttention,
			Phrases: []string{
				"severe pain", "high fever", "difficulty breathing",
				"chest pain", "blood", "unconscious", "seizure",
				"stroke", "heart attack", "emergency",
			},
		},
		{
			Name:      CategoryMediumRisk,
			Diagnosis: domain.DiagnosisConsultationRecommended,
			Phrases: []string{
				"moderate pain", "persistent", "chronic", "recurring",
				"headache", "nausea", "vomiting", "dizziness",
			},
		},
	}
}
