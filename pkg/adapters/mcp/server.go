package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/anamnesis"
	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const graphURI = "anamnesis://graph"

// Service is the subset of consultation.Service exposed as tools.
type Service interface {
	Start(ctx context.Context, patientID, doctorID string) (*consultation.Snapshot, error)
	Answer(ctx context.Context, req consultation.AnswerRequest) (*consultation.AnswerResult, error)
	Back(ctx context.Context, id string) (*consultation.Snapshot, error)
	SaveDraft(ctx context.Context, id string) (*domain.Consultation, error)
	Resume(ctx context.Context, id string) (*consultation.Snapshot, error)
	Cancel(ctx context.Context, id string) (*domain.Consultation, error)
	Complete(ctx context.Context, id, finalDiagnosis, notes string) (*domain.Consultation, error)
	Get(ctx context.Context, id string) (*consultation.Snapshot, error)
	Graph() *graph.Graph
}

// SessionInput identifies a consultation.
type SessionInput struct {
	SessionID string `json:"session_id"`
}

// StartInput opens a consultation.
type StartInput struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
}

// AnswerInput submits an answer to the current question.
type AnswerInput struct {
	SessionID      string `json:"session_id"`
	Answer         string `json:"answer"`
	ExpectedNodeID string `json:"expected_node_id,omitempty"`
}

// CompleteInput closes a consultation.
type CompleteInput struct {
	SessionID      string `json:"session_id"`
	FinalDiagnosis string `json:"final_diagnosis,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// SessionResult is the unified tool output for every consultation operation.
type SessionResult struct {
	SessionID          string                `json:"session_id" jsonschema_description:"Consultation identifier"`
	Status             domain.Status         `json:"status"`
	Question           *domain.QuestionView  `json:"question,omitempty" jsonschema_description:"Question to ask next; absent once a diagnosis is reached"`
	Progress           *domain.Progress      `json:"progress,omitempty"`
	DiagnosisCandidate string                `json:"diagnosis_candidate,omitempty"`
	FinalDiagnosis     string                `json:"final_diagnosis,omitempty"`
	History            []domain.HistoryEntry `json:"history,omitempty"`
	Replayed           bool                  `json:"replayed,omitempty" jsonschema_description:"True when a retried answer was absorbed"`
}

// DiagnosesResult lists every reachable diagnosis.
type DiagnosesResult struct {
	Diagnoses []graph.Outcome `json:"diagnoses"`
}

// Server wraps the consultation service and exposes it as an MCP Server.
type Server struct {
	svc       Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("anamnesis-mcp", strings.TrimSpace(anamnesis.Version), server.WithToolCapabilities(false)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// ServeSSE serves the SSE transport on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Consultation identifier"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_consultation",
		mcp.WithDescription("Open a consultation for a patient and return the first question."),
		mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient identifier")),
		mcp.WithString("doctor_id", mcp.Required(), mcp.Description("Doctor identifier")),
		mcp.WithOutputSchema[SessionResult](),
	), s.handleStart)

	s.mcpServer.AddTool(mcp.NewTool("answer_question",
		mcp.WithDescription("Answer the current question with yes or no."),
		sessionParam(),
		mcp.WithString("answer", mcp.Required(), mcp.Enum("yes", "no")),
		mcp.WithString("expected_node_id", mcp.Description("Node the answer is meant for; makes retries safe")),
		mcp.WithOutputSchema[SessionResult](),
	), s.handleAnswer)

	s.mcpServer.AddTool(mcp.NewTool("go_back",
		mcp.WithDescription("Undo the most recent answer."),
		sessionParam(),
		mcp.WithOutputSchema[SessionResult](),
	), s.sessionHandler("go_back", s.svc.Back))

	s.mcpServer.AddTool(mcp.NewTool("save_draft",
		mcp.WithDescription("Pause the consultation as a draft."),
		sessionParam(),
		mcp.WithOutputSchema[SessionResult](),
	), s.statusHandler("save_draft", s.svc.SaveDraft))

	s.mcpServer.AddTool(mcp.NewTool("resume_consultation",
		mcp.WithDescription("Resume a draft consultation."),
		sessionParam(),
		mcp.WithOutputSchema[SessionResult](),
	), s.sessionHandler("resume_consultation", s.svc.Resume))

	s.mcpServer.AddTool(mcp.NewTool("cancel_consultation",
		mcp.WithDescription("Cancel the consultation."),
		sessionParam(),
		mcp.WithOutputSchema[SessionResult](),
	), s.statusHandler("cancel_consultation", s.svc.Cancel))

	s.mcpServer.AddTool(mcp.NewTool("complete_consultation",
		mcp.WithDescription("Complete the consultation once a diagnosis candidate exists."),
		sessionParam(),
		mcp.WithString("final_diagnosis", mcp.Description("Confirmed diagnosis; defaults to the candidate")),
		mcp.WithString("notes", mcp.Description("Doctor notes")),
		mcp.WithOutputSchema[SessionResult](),
	), s.handleComplete)

	s.mcpServer.AddTool(mcp.NewTool("get_consultation",
		mcp.WithDescription("Fetch a consultation with its current question and history."),
		sessionParam(),
		mcp.WithOutputSchema[SessionResult](),
	), s.sessionHandler("get_consultation", s.svc.Get))

	s.mcpServer.AddTool(mcp.NewTool("list_diagnoses",
		mcp.WithDescription("List every reachable diagnosis with the shortest answer path to it."),
		mcp.WithOutputSchema[DiagnosesResult](),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultStructuredOnly(DiagnosesResult{Diagnoses: s.svc.Graph().Diagnoses()}), nil
	})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in StartInput
	if err := request.BindArguments(&in); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid start_consultation arguments", err), nil
	}
	snap, err := s.svc.Start(ctx, in.PatientID, in.DoctorID)
	if err != nil {
		return s.toolError("start_consultation", err), nil
	}
	return mcp.NewToolResultStructuredOnly(fromSnapshot(snap)), nil
}

func (s *Server) handleAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in AnswerInput
	if err := request.BindArguments(&in); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid answer_question arguments", err), nil
	}
	res, err := s.svc.Answer(ctx, consultation.AnswerRequest{
		SessionID:      in.SessionID,
		Answer:         in.Answer,
		ExpectedNodeID: in.ExpectedNodeID,
	})
	if err != nil {
		return s.toolError("answer_question", err), nil
	}
	progress := res.Progress
	return mcp.NewToolResultStructuredOnly(SessionResult{
		SessionID:          res.Consultation.ID,
		Status:             res.Consultation.Status,
		Question:           res.NextQuestion,
		Progress:           &progress,
		DiagnosisCandidate: res.DiagnosisCandidate,
		History:            res.HistoryTail,
		Replayed:           res.Replayed,
	}), nil
}

func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in CompleteInput
	if err := request.BindArguments(&in); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid complete_consultation arguments", err), nil
	}
	c, err := s.svc.Complete(ctx, in.SessionID, in.FinalDiagnosis, in.Notes)
	if err != nil {
		return s.toolError("complete_consultation", err), nil
	}
	return mcp.NewToolResultStructuredOnly(fromConsultation(c)), nil
}

func (s *Server) sessionHandler(tool string, fn func(context.Context, string) (*consultation.Snapshot, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in SessionInput
		if err := request.BindArguments(&in); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid "+tool+" arguments", err), nil
		}
		snap, err := fn(ctx, in.SessionID)
		if err != nil {
			return s.toolError(tool, err), nil
		}
		return mcp.NewToolResultStructuredOnly(fromSnapshot(snap)), nil
	}
}

func (s *Server) statusHandler(tool string, fn func(context.Context, string) (*domain.Consultation, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in SessionInput
		if err := request.BindArguments(&in); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid "+tool+" arguments", err), nil
		}
		c, err := fn(ctx, in.SessionID)
		if err != nil {
			return s.toolError(tool, err), nil
		}
		return mcp.NewToolResultStructuredOnly(fromConsultation(c)), nil
	}
}

// toolError renders err as "<kind>: <message>". Internal errors are logged and masked.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	kind := domain.KindOf(err)
	msg := domain.MessageOf(err)
	if kind == domain.KindInternal {
		s.logger.Error("MCP tool failed", "tool", tool, "err", err)
		msg = "internal error"
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", kind, msg))
}

func fromSnapshot(snap *consultation.Snapshot) SessionResult {
	r := fromConsultation(snap.Consultation)
	r.Progress = &snap.Progress
	if !snap.Question.Terminal {
		q := snap.Question
		r.Question = &q
	}
	r.History = snap.Consultation.History
	return r
}

func fromConsultation(c *domain.Consultation) SessionResult {
	return SessionResult{
		SessionID:          c.ID,
		Status:             c.Status,
		DiagnosisCandidate: c.DiagnosisCandidate,
		FinalDiagnosis:     c.FinalDiagnosis,
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Decision Graph",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		g := s.svc.Graph()
		data, err := json.Marshal(map[string]any{
			"root":  g.Root(),
			"nodes": g.Nodes(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
