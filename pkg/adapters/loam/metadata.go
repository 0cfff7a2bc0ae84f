package loam

import "github.com/aretw0/anamnesis/pkg/domain"

// NodeMetadata represents the frontmatter of a decision node document.
// The document body is the question text.
type NodeMetadata struct {
	ID   string `json:"id" mapstructure:"id"`
	Root bool   `json:"root" mapstructure:"root"`

	Yes string `json:"yes" mapstructure:"yes"`
	No  string `json:"no" mapstructure:"no"`

	// Question overrides the body when set.
	Question string `json:"question" mapstructure:"question"`

	// Diagnosis marks a terminal node.
	Diagnosis string `json:"diagnosis" mapstructure:"diagnosis"`

	// Advice is follow-up guidance for this diagnosis, surfaced in reports.
	Advice *domain.Recommendation `json:"advice,omitempty" mapstructure:"advice"`
}
