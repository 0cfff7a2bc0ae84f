package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
)

func TestReportMarkdown(t *testing.T) {
	done := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	md := ReportMarkdown(&consultation.Report{
		SessionID:        "s1",
		PatientID:        "p1",
		DoctorID:         "d1",
		Status:           domain.StatusCompleted,
		PrimaryDiagnosis: "Acute conjunctivitis",
		Confidence:       84,
		Explanation:      "Based on discharge.",
		History: []domain.HistoryEntry{
			{Ordinal: 1, Question: "Discharge | pus?", Answer: domain.AnswerYes},
		},
		Recommendations: domain.Recommendation{FollowUp: []string{"Review in 3 days"}},
		Notes:           "Cold compresses",
		CompletedAt:     &done,
	})

	assert.Contains(t, md, "# Consultation s1")
	assert.Contains(t, md, "- **Completed:** 2024-05-01T10:00:00Z")
	assert.Contains(t, md, "**Acute conjunctivitis** (confidence 84%)")
	assert.Contains(t, md, "| 1 | Discharge \\| pus? | yes |")
	assert.Contains(t, md, "## Follow-up\n\n- Review in 3 days")
	assert.NotContains(t, md, "## Medication")
	assert.Contains(t, md, "## Notes\n\nCold compresses")
}

func TestReportMarkdown_NoDiagnosis(t *testing.T) {
	md := ReportMarkdown(&consultation.Report{
		SessionID:       "s2",
		Status:          domain.StatusActive,
		Explanation:     "No diagnosis has been reached yet.",
		Recommendations: domain.Recommendation{General: []string{"ignored"}},
	})
	assert.Contains(t, md, "No diagnosis has been reached yet.")
	assert.NotContains(t, md, "ignored")
	assert.NotContains(t, md, "## Answers")
}

func TestQuestionMarkdown(t *testing.T) {
	md := QuestionMarkdown(domain.QuestionView{Text: "Pain?"}, domain.Progress{QuestionsAnswered: 1, ProgressPercent: 50, RemainingMax: 1})
	assert.Equal(t, "### Pain?\n\n_Question 2 · 50% · at most 1 to go_\n", md)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")
	assert.Contains(t, buf.String(), "v0.1.0")
}

func TestNewRenderer(t *testing.T) {
	out, err := NewRenderer()("**bold**")
	assert.NoError(t, err)
	assert.Contains(t, out, "bold")
}
