package api

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/juju/errors"
)

const (
	// DefaultRequestTimeout is used if ServerOptions.RequestTimeout is
	// not set.
	DefaultRequestTimeout = 30 * time.Second

	maxRequestBodySize = 64 * 1024
)

// ServerOptions has dependencies of HTTP handlers. Engine and
// VPNDetector are mandatory. Without Learner learning endpoints are not
// mounted; without Stats providers endpoint returns an empty list.
type ServerOptions struct {
	Engine         Engine
	VPNDetector    VPNDetector
	Learner        Learner
	Stats          StatsReporter
	RequestTimeout time.Duration
	Middlewares    []func(http.Handler) http.Handler
}

type handler struct {
	engine  Engine
	vpn     VPNDetector
	learner Learner
	stats   StatsReporter
}

func (h handler) encodeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	encoder := json.NewEncoder(w)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}

func (h handler) sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	e := &httpError{
		message:    message,
		statusCode: statusCode,
		err:        err,
	}

	h.encodeJSON(w, e.StatusCode(), e)
}

func (h handler) readBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		h.sendError(w, nil, "Incorrect content type", http.StatusUnsupportedMediaType)

		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxRequestBodySize))
	if err != nil {
		h.sendError(w, err, "Cannot read request body", http.StatusBadRequest)

		return nil, false
	}

	return body, true
}

func (h handler) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	h.sendError(w, nil, "Not found", http.StatusNotFound)
}

func (h handler) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	h.sendError(w, nil, "This HTTP method is not allowed", http.StatusMethodNotAllowed)
}

func parseIP(value string) (net.IP, error) {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil {
		return nil, errors.NotValidf("ip address %q", value)
	}

	return ip, nil
}

// MakeServer builds a router with all endpoints.
func MakeServer(opts ServerOptions) (*chi.Mux, error) {
	switch {
	case opts.Engine == nil:
		return nil, errors.NotValidf("nil engine")
	case opts.VPNDetector == nil:
		return nil, errors.NotValidf("nil vpn detector")
	case opts.RequestTimeout < 0:
		return nil, errors.NotValidf("request timeout %v", opts.RequestTimeout)
	case opts.RequestTimeout == 0:
		opts.RequestTimeout = DefaultRequestTimeout
	}

	h := handler{
		engine:  opts.Engine,
		vpn:     opts.VPNDetector,
		learner: opts.Learner,
		stats:   opts.Stats,
	}
	router := chi.NewRouter()

	router.Use(middleware.StripSlashes)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(opts.RequestTimeout))
	router.Use(opts.Middlewares...)

	router.NotFound(h.handleNotFound)
	router.MethodNotAllowed(h.handleMethodNotAllowed)

	router.Route("/v1", func(r chi.Router) {
		r.Get("/infer", h.handleInferSelf)
		r.Post("/infer", h.handleInfer)
		r.Get("/vpn", h.handleVPN)
		r.Get("/providers", h.handleProviders)

		if h.learner != nil {
			r.Get("/learned", h.handleLearned)
			r.Post("/learn", h.handleLearn)
		}
	})

	return router, nil
}
