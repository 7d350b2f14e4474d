// Package api exposes the HTTP surface: case browsing, query submission,
// task polling, and answer checking.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqlhunt/sqlhunt/internal/auth"
	"github.com/sqlhunt/sqlhunt/internal/cases"
	"github.com/sqlhunt/sqlhunt/internal/catalog"
	"github.com/sqlhunt/sqlhunt/internal/config"
	"github.com/sqlhunt/sqlhunt/internal/observability"
	"github.com/sqlhunt/sqlhunt/internal/sqlguard"
	"github.com/sqlhunt/sqlhunt/internal/tasks"
)

type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Cases             *cases.Service
	Catalog           *catalog.Catalog
	Runner            *tasks.Runner
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/cases", func(w http.ResponseWriter, r *http.Request) {
		handleListCases(deps, w, r)
	})
	protected.HandleFunc("GET /v1/cases/{case}", func(w http.ResponseWriter, r *http.Request) {
		handleGetCase(deps, w, r)
	})
	protected.HandleFunc("POST /v1/cases/{case}/start", func(w http.ResponseWriter, r *http.Request) {
		handleStartCase(deps, w, r)
	})
	protected.HandleFunc("GET /v1/cases/{case}/schema", func(w http.ResponseWriter, r *http.Request) {
		handleCaseSchema(deps, w, r)
	})
	protected.HandleFunc("POST /v1/cases/{case}/query", func(w http.ResponseWriter, r *http.Request) {
		handleSubmitQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/cases/{case}/answer", func(w http.ResponseWriter, r *http.Request) {
		handleCheckAnswer(deps, w, r)
	})
	protected.HandleFunc("GET /v1/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		handlePollTask(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("GET /v1/cases", protectedHandler)
	mux.Handle("GET /v1/cases/{case}", protectedHandler)
	mux.Handle("POST /v1/cases/{case}/start", protectedHandler)
	mux.Handle("GET /v1/cases/{case}/schema", protectedHandler)
	mux.Handle("POST /v1/cases/{case}/query", protectedHandler)
	mux.Handle("POST /v1/cases/{case}/answer", protectedHandler)
	mux.Handle("GET /v1/tasks/{task}", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckAppDBDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AppDB.DSN == "" {
			return errors.New("app database dsn is not configured")
		}
		return nil
	}
}

func CheckInvestigationsDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Investigations.DSN == "" {
			return errors.New("investigations dsn is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// userFromRequest resolves the acting learner. Authenticated identity wins;
// the X-User-ID header only applies when auth is disabled.
func userFromRequest(r *http.Request) (string, error) {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		return identity.UserID, nil
	}
	if userID := strings.TrimSpace(r.Header.Get("X-User-ID")); userID != "" {
		return userID, nil
	}
	return "", errors.New("user identity is required")
}

// requireProgress distinguishes a missing case from a case the learner has
// not started. Both schema reads and query submissions need a progress row.
func requireProgress(r *http.Request, caseService *cases.Service, userID, caseID string) error {
	if _, err := caseService.Get(r.Context(), caseID); err != nil {
		return err
	}
	if _, err := caseService.Progress(r.Context(), userID, caseID); err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			return cases.ErrNoProgress
		}
		return err
	}
	return nil
}

func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *sqlguard.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(ctx, w, http.StatusBadRequest, "VALIDATION_FAILED", validationErr.Message, false, map[string]any{"rule": validationErr.Rule})
	case errors.Is(err, cases.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, "CASE_NOT_FOUND", "case was not found", false, nil)
	case errors.Is(err, catalog.ErrNoTables):
		writeError(ctx, w, http.StatusNotFound, "CASE_NOT_FOUND", "case has no available tables", false, nil)
	case errors.Is(err, cases.ErrXPLocked):
		writeError(ctx, w, http.StatusForbidden, "XP_REQUIRED", "not enough experience to open this case", false, nil)
	case errors.Is(err, cases.ErrNoProgress):
		writeError(ctx, w, http.StatusConflict, "PROGRESS_REQUIRED", "start the case before submitting an answer", false, nil)
	case errors.Is(err, tasks.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, "TASK_NOT_FOUND", "task was not found", false, nil)
	case errors.Is(err, tasks.ErrDispatch):
		writeError(ctx, w, http.StatusInternalServerError, "TASK_DISPATCH_FAILED", "could not enqueue the query", true, nil)
	default:
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", "internal error", true, nil)
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
