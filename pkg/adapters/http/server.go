package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/journey"
	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/internal/presentation/graph"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/registry"
	"github.com/aretw0/journey/pkg/runner"
	"github.com/aretw0/journey/pkg/schema"
	"github.com/aretw0/journey/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var rawSpec []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// Catalog lists the actions a host has registered.
type Catalog interface {
	Definitions() []registry.Definition
}

// Server exposes a session.Manager as a JSON API.
type Server struct {
	Sessions     *session.Manager
	Catalog      Catalog
	Gatherer     prometheus.Gatherer
	MaxInputSize int
	Logger       *slog.Logger

	spec *openapi3.T
}

// Option configures the Server.
type Option func(*Server)

// WithCatalog publishes the action registry under /actions.
func WithCatalog(c Catalog) Option {
	return func(s *Server) { s.Catalog = c }
}

// WithGatherer serves the given registry under /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.Gatherer = g }
}

// WithMaxInputSize bounds string input accepted by /sessions/{id}/input.
func WithMaxInputSize(n int) Option {
	return func(s *Server) { s.MaxInputSize = n }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// NewHandler creates the HTTP handler for the manager.
// It fails only when the embedded OpenAPI document is invalid.
func NewHandler(mgr *session.Manager, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		Sessions:     mgr,
		MaxInputSize: runner.DefaultMaxInputSize,
		Logger:       logging.NewNop(),
		spec:         spec,
	}
	for _, opt := range opts {
		opt(s)
	}
	return enableCORS(s.routes()), nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/actions", func(r chi.Router) {
		r.Get("/", s.ListActions)
		r.Get("/{actionName}", s.GetAction)
	})

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.ListWorkflows)
		r.Get("/{workflowId}", s.GetWorkflow)
		r.Get("/{workflowId}/graph", s.GetWorkflowGraph)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.StartSession)
		r.Get("/{sessionId}", s.GetSession)
		r.Delete("/{sessionId}", s.DeleteSession)
		r.Post("/{sessionId}/step", s.StepSession)
		r.Post("/{sessionId}/input", s.ProvideInput)
		r.Get("/{sessionId}/graph", s.GetSessionGraph)
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Journey API Documentation</title>
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

// StartRequest is the body of POST /sessions.
type StartRequest struct {
	WorkflowID string         `json:"workflow_id"`
	Variables  map[string]any `json:"variables,omitempty"`
}

// InputRequest is the body of POST /sessions/{id}/input.
type InputRequest struct {
	RequestID string        `json:"request_id,omitempty"`
	Value     *domain.Value `json:"value"`
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec != nil && s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "journey-http",
		"version":     strings.TrimSpace(journey.Version),
		"api_version": apiVersion,
	})
}

// ListActions handles GET /actions. The optional category query parameter
// narrows the list.
func (s *Server) ListActions(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	defs := []registry.Definition{}
	for _, def := range s.definitions() {
		if category == "" || strings.EqualFold(def.Category, category) {
			defs = append(defs, def)
		}
	}
	s.writeJSON(w, http.StatusOK, defs)
}

// GetAction handles GET /actions/{actionName}.
func (s *Server) GetAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "actionName")
	for _, def := range s.definitions() {
		if def.Name == name {
			s.writeJSON(w, http.StatusOK, def)
			return
		}
	}
	s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrUnknownAction, name))
}

func (s *Server) definitions() []registry.Definition {
	if s.Catalog == nil {
		return nil
	}
	return s.Catalog.Definitions()
}

// ListWorkflows handles GET /workflows.
func (s *Server) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.Loader().List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetWorkflow handles GET /workflows/{workflowId}.
func (s *Server) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.Sessions.Loader().Load(r.Context(), chi.URLParam(r, "workflowId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, schema.Encode(wf))
}

// GetWorkflowGraph handles GET /workflows/{workflowId}/graph?format=json|mermaid|svg.
func (s *Server) GetWorkflowGraph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "mermaid" && format != "svg" {
		s.writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("unsupported graph format %q", format)))
		return
	}

	wf, err := s.Sessions.Loader().Load(r.Context(), chi.URLParam(r, "workflowId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g := graph.Linearize(wf)

	switch format {
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(graph.GenerateMermaid(g, nil)))
	case "svg":
		img, err := graph.RenderImage(r.Context(), g, graph.FormatSVG)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(img)
	default:
		s.writeJSON(w, http.StatusOK, g)
	}
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.Logger.Warn("StartSession: Invalid request body", "error", err)
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if body.WorkflowID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody("workflow_id is required"))
		return
	}

	vars := make(domain.Bindings, len(body.Variables))
	for k, v := range body.Variables {
		val, err := domain.ValueOf(v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("variable %q: %v", k, err)))
			return
		}
		vars[k] = val
	}

	ctx := logging.WithWorkflowID(r.Context(), body.WorkflowID)
	res, err := s.Sessions.Start(ctx, body.WorkflowID, vars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

// GetSession handles GET /sessions/{sessionId}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{sessionId}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StepSession handles POST /sessions/{sessionId}/step.
func (s *Server) StepSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	res, err := s.Sessions.Step(logging.WithSessionID(r.Context(), id), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ProvideInput handles POST /sessions/{sessionId}/input.
func (s *Server) ProvideInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")

	var body InputRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.Logger.Warn("ProvideInput: Invalid request body", "error", err, "session_id", id)
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if body.Value == nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody("value is required"))
		return
	}

	value := *body.Value
	if value.Kind() == domain.KindString {
		clean, err := runner.SanitizeInput(value.String(), s.MaxInputSize)
		if err != nil {
			s.Logger.Warn("ProvideInput: Input rejected", "error", err, "session_id", id)
			s.writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		value = domain.String(clean)
	}

	res, err := s.Sessions.Input(logging.WithSessionID(r.Context(), id), id, body.RequestID, value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// GetSessionGraph handles GET /sessions/{sessionId}/graph.
// The Mermaid output highlights the nodes the session visited and its current block.
func (s *Server) GetSessionGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	sess, err := s.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wf, err := s.Sessions.Loader().Load(r.Context(), sess.WorkflowID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(graph.Linearize(wf), graph.OverlayFor(sess))))
}

// -- Helpers --

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrUnknownAction):
		return http.StatusNotFound
	case session.IsClientError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.LogWith(r.Context(), s.Logger).Error("Request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, errorBody(err.Error()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}
