package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/internal/presentation/tui"
	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
)

// Service is the part of consultation.Service an interview drives.
type Service interface {
	Start(ctx context.Context, patientID, doctorID string) (*consultation.Snapshot, error)
	Answer(ctx context.Context, req consultation.AnswerRequest) (*consultation.AnswerResult, error)
	Back(ctx context.Context, id string) (*consultation.Snapshot, error)
	SaveDraft(ctx context.Context, id string) (*domain.Consultation, error)
	Resume(ctx context.Context, id string) (*consultation.Snapshot, error)
	Cancel(ctx context.Context, id string) (*domain.Consultation, error)
	Complete(ctx context.Context, id, finalDiagnosis, notes string) (*domain.Consultation, error)
	Get(ctx context.Context, id string) (*consultation.Snapshot, error)
	Report(ctx context.Context, id string) (*consultation.Report, error)
}

// InterviewOptions configures an interactive consultation.
type InterviewOptions struct {
	PatientID string
	DoctorID  string
	// SessionID continues an existing consultation instead of starting one.
	SessionID string

	In  io.Reader
	Out io.Writer
	// Render turns markdown into terminal output. Nil prints the markdown as is.
	Render func(string) (string, error)
	Logger *slog.Logger
}

type interview struct {
	svc    Service
	opts   InterviewOptions
	lines  *bufio.Scanner
	logger *slog.Logger
}

// RunInterview walks a doctor through the graph on a console until the consultation
// is completed, saved as a draft or canceled. Interrupting the interview saves a draft.
func RunInterview(ctx context.Context, svc Service, opts InterviewOptions) (*domain.Consultation, error) {
	iv := &interview{
		svc:    svc,
		opts:   opts,
		lines:  bufio.NewScanner(NewInterruptibleReader(opts.In, ctx.Done())),
		logger: opts.Logger,
	}
	if iv.logger == nil {
		iv.logger = logging.NewNop()
	}

	snap, err := iv.open(ctx)
	if err != nil {
		return nil, err
	}
	c, err := iv.loop(ctx, snap)
	if err != nil && isInterrupted(err) && snap != nil {
		return iv.suspend(snap.Consultation.ID)
	}
	return c, err
}

func (iv *interview) open(ctx context.Context) (*consultation.Snapshot, error) {
	if iv.opts.SessionID == "" {
		snap, err := iv.svc.Start(ctx, iv.opts.PatientID, iv.opts.DoctorID)
		if err != nil {
			return nil, err
		}
		printSystemMessage(iv.opts.Out, "Consultation '%s' started.", snap.Consultation.ID)
		return snap, nil
	}

	snap, err := iv.svc.Get(ctx, iv.opts.SessionID)
	if err != nil {
		return nil, err
	}
	switch snap.Consultation.Status {
	case domain.StatusDraft:
		if snap, err = iv.svc.Resume(ctx, iv.opts.SessionID); err != nil {
			return nil, err
		}
		printSystemMessage(iv.opts.Out, "Resuming at '%s' node...", snap.Consultation.CurrentNodeID)
	case domain.StatusActive:
		printSystemMessage(iv.opts.Out, "Continuing at '%s' node...", snap.Consultation.CurrentNodeID)
	default:
		return nil, domain.Errorf(domain.KindInvalidState, "interview", "consultation is %s", snap.Consultation.Status)
	}
	return snap, nil
}

func (iv *interview) loop(ctx context.Context, snap *consultation.Snapshot) (*domain.Consultation, error) {
	id := snap.Consultation.ID
	question, progress := snap.Question, snap.Progress
	candidate := snap.Consultation.DiagnosisCandidate

	for candidate == "" {
		iv.show(tui.QuestionMarkdown(question, progress))
		line, err := iv.prompt("[y]es / [n]o / [b]ack / [s]ave draft / [c]ancel > ")
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(line) {
		case "y", "yes", "n", "no":
			answer := "yes"
			if line[0] == 'n' || line[0] == 'N' {
				answer = "no"
			}
			res, err := iv.svc.Answer(ctx, consultation.AnswerRequest{
				SessionID:      id,
				Answer:         answer,
				ExpectedNodeID: question.NodeID,
			})
			if err != nil {
				return nil, err
			}
			progress, candidate = res.Progress, res.DiagnosisCandidate
			if res.NextQuestion != nil {
				question = *res.NextQuestion
			}
		case "b", "back":
			prev, err := iv.svc.Back(ctx, id)
			if err != nil {
				if domain.KindOf(err) == domain.KindInvalidState {
					printSystemMessage(iv.opts.Out, "%s", domain.MessageOf(err))
					continue
				}
				return nil, err
			}
			question, progress = prev.Question, prev.Progress
		case "s", "save", "draft":
			return iv.suspend(id)
		case "c", "cancel":
			c, err := iv.svc.Cancel(ctx, id)
			if err != nil {
				return nil, err
			}
			printSystemMessage(iv.opts.Out, "Consultation '%s' canceled.", id)
			return c, nil
		default:
			printSystemMessage(iv.opts.Out, "Please answer y or n.")
		}
	}

	return iv.complete(ctx, id, candidate)
}

func (iv *interview) complete(ctx context.Context, id, candidate string) (*domain.Consultation, error) {
	iv.show(tui.DiagnosisMarkdown(candidate))
	final, err := iv.prompt(fmt.Sprintf("Final diagnosis [%s]: ", candidate))
	if err != nil {
		return nil, err
	}
	notes, err := iv.prompt("Notes: ")
	if err != nil {
		return nil, err
	}

	c, err := iv.svc.Complete(ctx, id, final, notes)
	if err != nil {
		return nil, err
	}
	report, err := iv.svc.Report(ctx, id)
	if err != nil {
		return nil, err
	}
	iv.show(tui.ReportMarkdown(report))
	return c, nil
}

// suspend saves a draft even when the interview context is already canceled.
func (iv *interview) suspend(id string) (*domain.Consultation, error) {
	c, err := iv.svc.SaveDraft(context.Background(), id)
	if err != nil {
		return nil, err
	}
	printSystemMessage(iv.opts.Out, "Draft saved. Resume with --session %s", id)
	return c, nil
}

func (iv *interview) prompt(label string) (string, error) {
	fmt.Fprint(iv.opts.Out, label)
	if !iv.lines.Scan() {
		fmt.Fprintln(iv.opts.Out)
		if err := iv.lines.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(iv.lines.Text()), nil
}

func (iv *interview) show(markdown string) {
	out := markdown
	if iv.opts.Render != nil {
		rendered, err := iv.opts.Render(markdown)
		if err != nil {
			iv.logger.Warn("Markdown rendering failed", "err", err)
		} else {
			out = rendered
		}
	}
	fmt.Fprintln(iv.opts.Out, out)
}

var _ Service = (*consultation.Service)(nil)
