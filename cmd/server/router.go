package main

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"aps-assistant/internal/agent"
	"aps-assistant/internal/analysis"
	"aps-assistant/internal/config"
	"aps-assistant/internal/conversation"
	"aps-assistant/internal/dashboard"
	"aps-assistant/internal/report"
	"aps-assistant/internal/seed"
	"aps-assistant/internal/triage"
)

type app struct {
	store    *dashboard.Store
	sessions *conversation.Manager
	triage   *triage.Service
	analysis *analysis.Service
	report   *report.Service
}

func newApp(gw agent.Gateway, ds seed.Dataset, reportSvc *report.Service, cfg *config.Config, logger zerolog.Logger) *app {
	store := dashboard.NewStore(ds.Consults, ds.Patients, ds.Team)

	var alerter triage.Alerter
	if reportSvc.Enabled() {
		alerter = reportSvc
	}

	return &app{
		store:    store,
		sessions: conversation.NewManager(gw, logger.With().Str("component", "chat").Logger()),
		triage:   triage.NewService(gw, store, alerter, cfg.AIRequestTimeout, logger.With().Str("component", "triage").Logger()),
		analysis: analysis.NewService(gw, store, cfg.AIRequestTimeout, cfg.AnalysisConcurrency, logger.With().Str("component", "analysis").Logger()),
		report:   reportSvc,
	}
}

func newRouter(a *app, origins []string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(origins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		conversation.RegisterRoutes(r, conversation.NewHandler(a.sessions))
		triage.RegisterRoutes(r, triage.NewHandler(a.triage, a.store))
		analysis.RegisterRoutes(r, analysis.NewHandler(a.analysis, a.store))
		dashboard.RegisterRoutes(r, dashboard.NewHandler(a.store))
		report.RegisterRoutes(r, report.NewHandler(a.report, a.store))
	})
	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}

// cors allows the configured origins; "*" allows any.
func cors(origins []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.ContainsFunc(origins, func(o string) bool { return strings.EqualFold(strings.TrimSpace(o), origin) }):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
