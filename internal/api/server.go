// Package api serves thermal-mass correction over HTTP: profiles are posted
// as JSON, corrected, optionally stored, and read back as JSON or charts.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/ctd.report/internal/db"
	"github.com/banshee-data/ctd.report/internal/httputil"
	"github.com/banshee-data/ctd.report/internal/pipeline"
	"github.com/banshee-data/ctd.report/internal/profile"
	"github.com/banshee-data/ctd.report/internal/report"
	"github.com/banshee-data/ctd.report/internal/timeutil"
	"github.com/banshee-data/ctd.report/internal/units"
	"github.com/banshee-data/ctd.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Store persists processed profiles. *db.DB implements it.
type Store interface {
	SaveProfile(ctx context.Context, o *pipeline.Outcome) error
	GetProfile(ctx context.Context, id string) (*pipeline.Outcome, error)
	ListProfiles(ctx context.Context, limit int) ([]db.ProfileSummary, error)
}

type Server struct {
	store     Store
	processor *pipeline.Processor
	clock     timeutil.Clock
}

// NewServer creates a server. A nil store disables ?store=true and the
// read endpoints.
func NewServer(store Store, processor *pipeline.Processor) *Server {
	return &Server{
		store:     store,
		processor: processor,
		clock:     timeutil.RealClock{},
	}
}

// SetClock replaces the clock used for request timing.
func (s *Server) SetClock(c timeutil.Clock) {
	s.clock = c
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.showHealth)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/profiles", s.listProfiles)
	mux.HandleFunc("/api/profiles/correct", s.correctProfile)
	mux.HandleFunc("/api/profiles/batch", s.correctBatch)
	mux.HandleFunc("/api/profiles/{id}", s.showProfile)
	mux.HandleFunc("/api/profiles/{id}/chart", s.showProfileChart)
	mux.HandleFunc("/api/profiles/{id}/chart.png", s.showProfilePNG)
	return mux
}

// statusFor maps processing errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, profile.ErrInsufficientData), errors.Is(err, profile.ErrNumericDegeneracy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, db.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteJSONError(w, statusFor(err), err.Error())
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":     "ok",
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
		"store":      s.store != nil,
		"time":       s.clock.Now().UTC(),
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.processor.Config)
}

// storeRequested parses ?store=, rejecting it when no store is configured.
func (s *Server) storeRequested(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("store")
	if v == "" {
		return false, nil
	}
	store, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid 'store' parameter: %q", v)
	}
	if store && s.store == nil {
		return false, errors.New("storage is not configured on this server")
	}
	return store, nil
}

func (s *Server) correctProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	store, err := s.storeRequested(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var p profile.Profile
	if err := httputil.DecodeJSON(r, &p); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	out, err := s.processor.Process(&p)
	if err != nil {
		writeError(w, err)
		return
	}
	if store {
		if err := s.store.SaveProfile(r.Context(), out); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to store profile: %v", err))
			return
		}
	}
	httputil.WriteJSONOK(w, out)
}

type batchRequest struct {
	Profiles []*profile.Profile `json:"profiles"`
}

type batchResponse struct {
	Outcomes []*pipeline.Outcome `json:"outcomes"`
}

func (s *Server) correctBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	store, err := s.storeRequested(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var req batchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(req.Profiles) == 0 {
		httputil.BadRequest(w, "no profiles in request")
		return
	}

	outs, err := s.processor.ProcessAll(r.Context(), req.Profiles)
	if err != nil {
		writeError(w, err)
		return
	}
	if store {
		for _, o := range outs {
			if err := s.store.SaveProfile(r.Context(), o); err != nil {
				httputil.InternalServerError(w, fmt.Sprintf("failed to store profile %s: %v", o.Profile.ID, err))
				return
			}
		}
	}
	httputil.WriteJSONOK(w, batchResponse{Outcomes: outs})
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "storage is not configured on this server")
		return
	}

	limit := db.DefaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	list, err := s.store.ListProfiles(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list profiles: %v", err))
		return
	}
	if list == nil {
		list = []db.ProfileSummary{}
	}
	httputil.WriteJSONOK(w, list)
}

// loadProfile fetches the {id} profile, writing the error response itself
// when it returns nil.
func (s *Server) loadProfile(w http.ResponseWriter, r *http.Request) *pipeline.Outcome {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return nil
	}
	if s.store == nil {
		httputil.NotFound(w, "storage is not configured on this server")
		return nil
	}
	o, err := s.store.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return nil
	}
	return o
}

func (s *Server) showProfile(w http.ResponseWriter, r *http.Request) {
	unit := r.URL.Query().Get("units")
	if unit == "" {
		unit = units.CMPS
	}
	if !units.IsValid(unit) {
		httputil.BadRequest(w, fmt.Sprintf("Invalid 'units' parameter, expected one of: %s", units.GetValidUnitsString()))
		return
	}

	o := s.loadProfile(w, r)
	if o == nil {
		return
	}
	if unit != units.CMPS {
		converted := *o
		converted.ProfilingSpeed = convertProfilingSpeed(o.ProfilingSpeed, unit)
		o = &converted
	}
	httputil.WriteJSONOK(w, o)
}

var centimetresPerDbar = units.CentimetresPerSecond(1)

// convertProfilingSpeed converts Vp from cm/s to unit.
func convertProfilingSpeed(vp profile.Values, unit string) profile.Values {
	out := make(profile.Values, len(vp))
	for i, v := range vp {
		out[i] = units.ConvertSpeed(v/centimetresPerDbar, unit)
	}
	return out
}

func (s *Server) showProfileChart(w http.ResponseWriter, r *http.Request) {
	o := s.loadProfile(w, r)
	if o == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteHTML(w, o); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
	}
}

func (s *Server) showProfilePNG(w http.ResponseWriter, r *http.Request) {
	o := s.loadProfile(w, r)
	if o == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := report.RenderPNG(w, o); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
	}
}
