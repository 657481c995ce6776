// Package acceptecho is an HTTP responder that reports the Accept request
// header it received, as JSON or as an HTML page depending on that header.
// It is the counterpart of the prober: point a cache at it and probe through
// the cache.
package acceptecho

import (
	"encoding/json"
	"html/template"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	tee "github.com/ericselin/vary-probe/pkg/response-writer-tee"
)

type Config struct {
	// Echo routes. DefaultRoutes is used if empty.
	Routes []Route
	// Origins allowed to fetch cross-origin. All origins are allowed if empty,
	// so a page on one host can probe the other.
	AllowedOrigins []string
	// Registry for the request counters. A new registry is created if nil.
	Registry *prometheus.Registry
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

type format string

const (
	formatHTML          format = "html"
	formatJSON          format = "json"
	formatNotAcceptable format = "not-acceptable"
)

type server struct {
	log      zerolog.Logger
	requests *prometheus.CounterVec
}

// New returns the echo handler with one endpoint per route and GET /metrics.
func New(config Config) http.Handler {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	routes := config.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes()
	}
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &server{
		log: logger,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accept_echo_requests_total",
				Help: "Number of echo requests by route and negotiated format",
			},
			[]string{"route", "format"},
		),
	}
	registry.MustRegister(s.requests)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		ExposedHeaders: []string{"Age", "Cache-Status", "Vary"},
	}))
	r.Use(s.logRequests)
	for _, route := range routes {
		r.Get(route.Path, s.echo(route))
	}
	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs := tee.NewResponseSaver(w)
		next.ServeHTTP(rs, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("accept", r.Header.Get("Accept")).
			Int("status", rs.StatusCode()).
			Int("bytes", rs.BytesWritten()).
			Dur("duration", rs.Duration()).
			Msg("Served request")
	})
}

// echo inspects the request's Accept header and responds with HTML, JSON or
// 406 Not Acceptable, after setting the route's caching headers.
func (s *server) echo(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if route.Vary {
			w.Header().Add("Vary", "Accept")
		}
		if route.CacheControl != "" {
			w.Header().Set("Cache-Control", route.CacheControl)
		}
		accept := r.Header.Get("Accept")
		f, mediaType := negotiate(accept)
		s.requests.WithLabelValues(route.Path, string(f)).Inc()
		switch f {
		case formatHTML:
			s.echoHTML(w, accept)
		case formatJSON:
			s.echoJSON(w, mediaType, accept)
		default:
			w.WriteHeader(http.StatusNotAcceptable)
		}
	}
}

// negotiate decides the response format by the first member of the Accept
// list only. It returns the member's media type without parameters.
func negotiate(accept string) (format, string) {
	first, _, _ := strings.Cut(accept, ",")
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(first))
	if err != nil {
		return formatNotAcceptable, ""
	}
	switch {
	case mediaType == "text/html":
		return formatHTML, mediaType
	case mediaType == "application/json",
		strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"):
		return formatJSON, mediaType
	}
	return formatNotAcceptable, mediaType
}

// The page fetches its own URL as JSON and logs the result, so a cache that
// ignores Vary shows up either on the page or in the browser console.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Accept header echo</title>
<script>fetch(window.location.href, {headers: {accept: "application/json"}}).then(r => r.json()).then(console.log)</script>
</head>
<body><code>{{.}}</code></body>
</html>
`))

func (s *server) echoHTML(w http.ResponseWriter, accept string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, accept); err != nil {
		s.log.Error().Err(err).Msg("Could not write HTML echo")
	}
}

func (s *server) echoJSON(w http.ResponseWriter, mediaType, accept string) {
	w.Header().Set("Content-Type", mediaType)
	if err := json.NewEncoder(w).Encode(map[string]string{"accept": accept}); err != nil {
		s.log.Error().Err(err).Msg("Could not write JSON echo")
	}
}
