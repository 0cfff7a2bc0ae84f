package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
)

// QuestionMarkdown formats the question a doctor should ask next.
func QuestionMarkdown(q domain.QuestionView, p domain.Progress) string {
	return fmt.Sprintf("### %s\n\n_Question %d · %d%% · at most %d to go_\n",
		q.Text, p.QuestionsAnswered+1, p.ProgressPercent, p.RemainingMax)
}

// DiagnosisMarkdown announces a reached diagnosis candidate.
func DiagnosisMarkdown(diagnosis string) string {
	return fmt.Sprintf("## Diagnosis candidate\n\n**%s**\n", diagnosis)
}

// ReportMarkdown renders a consultation report as a markdown document.
func ReportMarkdown(r *consultation.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Consultation %s\n\n", r.SessionID)
	fmt.Fprintf(&sb, "- **Patient:** %s\n", r.PatientID)
	fmt.Fprintf(&sb, "- **Doctor:** %s\n", r.DoctorID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", r.Status)
	if r.CompletedAt != nil {
		fmt.Fprintf(&sb, "- **Completed:** %s\n", r.CompletedAt.Format(time.RFC3339))
	}

	sb.WriteString("\n## Diagnosis\n\n")
	if r.PrimaryDiagnosis == "" {
		sb.WriteString(r.Explanation + "\n")
	} else {
		fmt.Fprintf(&sb, "**%s** (confidence %d%%)\n\n%s\n", r.PrimaryDiagnosis, r.Confidence, r.Explanation)
	}

	if len(r.History) > 0 {
		sb.WriteString("\n## Answers\n\n| # | Question | Answer |\n|---|---|---|\n")
		for _, h := range r.History {
			fmt.Fprintf(&sb, "| %d | %s | %s |\n", h.Ordinal, strings.ReplaceAll(h.Question, "|", "\\|"), h.Answer)
		}
	}

	if r.PrimaryDiagnosis != "" {
		writeList(&sb, "Medication", r.Recommendations.Medication)
		writeList(&sb, "General care", r.Recommendations.General)
		writeList(&sb, "Follow-up", r.Recommendations.FollowUp)
	}

	if r.Notes != "" {
		fmt.Fprintf(&sb, "\n## Notes\n\n%s\n", r.Notes)
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}
