package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

// StressRunner stresses the loaded portfolio under a scenario and publishes
// full reports downstream.
type StressRunner interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context, scenario domain.Scenario) (domain.Report, error)
	Publish(ctx context.Context, report domain.Report)
}

// Server exposes the dashboard, its JSON API, and health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer      *http.Server
	runner          StressRunner
	defaultScenario domain.Scenario
	dashboard       *template.Template
	logger          *slog.Logger
}

// NewServer creates the HTTP server. defaultScenario is used when a request
// does not name one.
func NewServer(addr string, runner StressRunner, defaultScenario domain.Scenario, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner:          runner,
		defaultScenario: defaultScenario,
		dashboard:       template.Must(template.New("dashboard.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/dashboard.html")),
		logger:          logger,
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/scenarios", s.handleScenarios)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/critical", s.handleCritical)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(runner))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":   s.defaultScenario.Key,
		"scenarios": domain.Scenarios(),
	})
}

// handleReport and handleDashboard are the full report views and the only
// routes that publish. The critical and map routes are partial views of the
// same run.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.runReport(w, r)
	if !ok {
		return
	}
	s.runner.Publish(r.Context(), report)
	writeJSON(w, http.StatusOK, reportResponse{
		Report:              report,
		TotalCrores:         report.Summary.TotalCrores().StringFixed(2),
		CapitalAtRiskCrores: report.Summary.CapitalAtRiskCrores().StringFixed(2),
	})
}

func (s *Server) handleCritical(w http.ResponseWriter, r *http.Request) {
	report, ok := s.runReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": report.Scenario,
		"loans":    report.Critical,
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	report, ok := s.runReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": report.Scenario,
		"points":   report.Points,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	report, ok := s.runReport(w, r)
	if !ok {
		return
	}
	s.runner.Publish(r.Context(), report)
	page := dashboardPage{
		Report:    report,
		Scenarios: domain.Scenarios(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.dashboard.Execute(w, page); err != nil {
		s.logger.Error("render dashboard failed", "error", err)
	}
}

// runReport resolves the requested scenario and runs it, writing an error
// response and returning false on failure.
func (s *Server) runReport(w http.ResponseWriter, r *http.Request) (domain.Report, bool) {
	scenario := s.defaultScenario
	if key := r.URL.Query().Get("scenario"); key != "" {
		sc, err := domain.LookupScenario(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return domain.Report{}, false
		}
		scenario = sc
	}

	report, err := s.runner.Run(r.Context(), scenario)
	if err != nil {
		status := http.StatusInternalServerError
		if s.runner.CheckReadiness(r.Context()) != nil {
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("stress run failed", "scenario", scenario.Key, "error", err)
		writeError(w, status, errors.New("stress run failed"))
		return domain.Report{}, false
	}
	return report, true
}

type reportResponse struct {
	domain.Report
	TotalCrores         string `json:"total_portfolio_crores"`
	CapitalAtRiskCrores string `json:"capital_at_risk_crores"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
