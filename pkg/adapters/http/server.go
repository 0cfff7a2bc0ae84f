package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justinas/alice"
	"github.com/oapi-codegen/runtime"

	"github.com/aretw0/anamnesis"
	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

// Service is the consultation core the handlers call into.
type Service interface {
	Start(ctx context.Context, patientID, doctorID string) (*consultation.Snapshot, error)
	Answer(ctx context.Context, req consultation.AnswerRequest) (*consultation.AnswerResult, error)
	Back(ctx context.Context, id string) (*consultation.Snapshot, error)
	SaveDraft(ctx context.Context, id string) (*domain.Consultation, error)
	Resume(ctx context.Context, id string) (*consultation.Snapshot, error)
	Cancel(ctx context.Context, id string) (*domain.Consultation, error)
	Complete(ctx context.Context, id, finalDiagnosis, notes string) (*domain.Consultation, error)
	Get(ctx context.Context, id string) (*consultation.Snapshot, error)
	List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error)
	Report(ctx context.Context, id string) (*consultation.Report, error)
	Graph() *graph.Graph
}

// Server holds the handlers of the session API.
type Server struct {
	Service Service
	Streams *StreamManager
	Logger  *slog.Logger

	metrics http.Handler
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.Logger = l }
}

// WithStreams shares a StreamManager whose Hooks were given to the service.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewHandler creates the HTTP handler for the service.
// It fails if the embedded OpenAPI document does not validate.
func NewHandler(svc Service, opts ...Option) (http.Handler, error) {
	server := &Server{
		Service: svc,
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager()
	}

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := validateRequests(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.Logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if server.metrics != nil {
		r.Handle("/metrics", server.metrics)
	}

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/graph", server.GetGraph)
	r.Get("/graph/diagnoses", server.ListDiagnoses)

	r.Route("/consultations", func(r chi.Router) {
		r.Post("/", server.StartConsultation)
		r.Get("/", server.ListConsultations)
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", server.GetConsultation)
			r.Post("/answer", server.AnswerQuestion)
			r.Post("/back", server.GoBack)
			r.Post("/draft", server.SaveDraft)
			r.Post("/resume", server.ResumeConsultation)
			r.Post("/cancel", server.CancelConsultation)
			r.Post("/complete", server.CompleteConsultation)
			r.Get("/report", server.GetReport)
			r.Get("/events", server.SubscribeEvents)
		})
	})

	chain := alice.New(
		middleware.RequestID,
		server.recoverPanic,
		server.logRequest,
		enableCORS,
		validate(server),
	)
	return chain.Then(r), nil
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Anamnesis API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// StartConsultation handles POST /consultations.
func (s *Server) StartConsultation(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if !s.decode(w, r, &body) {
		return
	}
	snap, err := s.Service.Start(r.Context(), body.PatientID, body.DoctorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, questionOf(snap))
}

// ListConsultations handles GET /consultations.
func (s *Server) ListConsultations(w http.ResponseWriter, r *http.Request) {
	var (
		filter   ports.ListFilter
		statuses []string
	)
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "patientId", query, &filter.PatientID); err != nil {
		s.writeError(w, r, bindError("patientId", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "doctorId", query, &filter.DoctorID); err != nil {
		s.writeError(w, r, bindError("doctorId", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "status", query, &statuses); err != nil {
		s.writeError(w, r, bindError("status", err))
		return
	}
	for _, st := range statuses {
		filter.Statuses = append(filter.Statuses, domain.Status(st))
	}

	list, err := s.Service.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := listResponse{Sessions: make([]session, len(list))}
	for i, c := range list {
		resp.Sessions[i] = mapSession(c)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetConsultation handles GET /consultations/{sessionId}.
func (s *Server) GetConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, consultationResponse{
		Session:       mapSession(snap.Consultation),
		Question:      snap.Question,
		Progress:      snap.Progress,
		AnswerHistory: mapHistory(snap.Consultation.History),
	})
}

// AnswerQuestion handles POST /consultations/{sessionId}/answer.
func (s *Server) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var body answerRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Service.Answer(r.Context(), consultation.AnswerRequest{
		SessionID:      id,
		Answer:         body.Answer,
		ExpectedNodeID: body.ExpectedNodeID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answerResponse{
		NextQuestion:       res.NextQuestion,
		DiagnosisCandidate: res.DiagnosisCandidate,
		Progress:           res.Progress,
		HistoryTail:        mapHistory(res.HistoryTail),
		Replayed:           res.Replayed,
	})
}

// GoBack handles POST /consultations/{sessionId}/back.
func (s *Server) GoBack(w http.ResponseWriter, r *http.Request) {
	s.snapshotOp(w, r, s.Service.Back)
}

// ResumeConsultation handles POST /consultations/{sessionId}/resume.
func (s *Server) ResumeConsultation(w http.ResponseWriter, r *http.Request) {
	s.snapshotOp(w, r, s.Service.Resume)
}

// SaveDraft handles POST /consultations/{sessionId}/draft. The body is ignored.
func (s *Server) SaveDraft(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, maxBodyBytes))
	s.statusOp(w, r, s.Service.SaveDraft)
}

// CancelConsultation handles POST /consultations/{sessionId}/cancel.
func (s *Server) CancelConsultation(w http.ResponseWriter, r *http.Request) {
	s.statusOp(w, r, s.Service.Cancel)
}

// CompleteConsultation handles POST /consultations/{sessionId}/complete.
func (s *Server) CompleteConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var body completeRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	c, err := s.Service.Complete(r.Context(), id, body.FinalDiagnosis, body.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{SessionID: c.ID, Status: c.Status, FinalDiagnosis: c.FinalDiagnosis})
}

// GetReport handles GET /consultations/{sessionId}/report.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	report, err := s.Service.Report(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g := s.Service.Graph()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"root":        g.Root(),
		"longestPath": g.LongestPath(),
		"nodes":       g.Nodes(),
	})
}

// ListDiagnoses handles the GET /graph/diagnoses request.
func (s *Server) ListDiagnoses(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"diagnoses": s.Service.Graph().Diagnoses()})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "anamnesis-http",
		"version":     strings.TrimSpace(anamnesis.Version),
		"api_version": apiVersion,
	})
}

// -- Helpers --

func (s *Server) snapshotOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*consultation.Snapshot, error)) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := op(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, questionOf(snap))
}

func (s *Server) statusOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.Consultation, error)) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	c, err := op(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{SessionID: c.ID, Status: c.Status})
}

func questionOf(snap *consultation.Snapshot) questionResponse {
	return questionResponse{
		SessionID: snap.Consultation.ID,
		Status:    snap.Consultation.Status,
		Question:  snap.Question,
		Progress:  snap.Progress,
	}
}

// sessionID binds the path parameter the way generated chi servers do.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "sessionId", chi.URLParam(r, "sessionId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.writeError(w, r, bindError("sessionId", err))
		return "", false
	}
	return id, true
}

func bindError(param string, err error) error {
	return &domain.Error{Kind: domain.KindValidation, Op: "bind", Message: fmt.Sprintf("invalid parameter %s", param), Err: err}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, &domain.Error{Kind: domain.KindValidation, Op: "decode", Message: "invalid request body", Err: err})
		return false
	}
	return true
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState:
		return http.StatusUnprocessableEntity
	case domain.KindConcurrency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// The client is gone.
		return
	}
	status := StatusFor(err)
	kind := domain.KindOf(err)
	msg := domain.MessageOf(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		kind = domain.KindInternal
		msg = "internal error"
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "err", err)
	}
}
