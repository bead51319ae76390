package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"laplog/internal/log"
	"laplog/internal/middleware/ratelimit"
	"laplog/internal/middleware/security"
	"laplog/internal/middleware/trace"
	"laplog/internal/services"
	appweb "laplog/web"
)

// ReadinessCheck reports whether the server's dependencies can serve.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	templates *template.Template
	svc       *services.RecordService

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware

	logger  *log.Logger
	slogger *log.StructuredLogger
	ready   map[string]ReadinessCheck
	now     func() time.Time
	started time.Time
}

type serverOptions struct {
	rateLimit      int
	logger         *log.Logger
	ready          map[string]ReadinessCheck
	now            func() time.Time
	trustedProxies []string
}

type Option func(*serverOptions)

// WithRateLimit caps mutating requests per client per minute.
func WithRateLimit(perMinute int) Option {
	return func(o *serverOptions) { o.rateLimit = perMinute }
}

func WithLogger(l *log.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithReadinessCheck adds a named dependency check to /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(o *serverOptions) { o.ready[name] = check }
}

// WithClock sets the clock used for default dates and months.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) { o.now = now }
}

// WithTrustedProxies trusts forwarding headers from extra networks.
func WithTrustedProxies(cidrs ...string) Option {
	return func(o *serverOptions) { o.trustedProxies = append(o.trustedProxies, cidrs...) }
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, svc *services.RecordService, opts ...Option) *Server {
	o := serverOptions{
		rateLimit: ratelimit.DefaultConfig().RequestsPerMinute,
		ready:     make(map[string]ReadinessCheck),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(log.DefaultConfig())
	}
	logger := o.logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range o.trustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.WarnContext(context.Background(), "Ignoring trusted proxy", log.FieldError, err)
		}
	}

	slogger := log.NewStructuredLogger(logger)
	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:      svc,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: o.rateLimit}),
		detector: detector,
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, slogger),
		logger:   logger,
		slogger:  slogger,
		ready:    o.ready,
		now:      o.now,
		started:  o.now(),
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WarnContext(context.Background(), "Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.WarnContext(context.Background(), "Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/records", s.handleSaveRecord)
	mux.HandleFunc("/records/delete", s.handleDeleteRecord)
	mux.HandleFunc("/ui/month", s.handleMonth)
	mux.HandleFunc("/api/series", s.handleAPISeries)
	mux.HandleFunc("/api/records", s.handleAPIRecords)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	s.Handler = s.withMiddleware(mux)
	return s
}

// withMiddleware wraps next so that, in order: the request gets an ID and
// is logged on completion, the logger travels in the context, security
// headers are set, probes are flagged and mutations are rate limited.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	h := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit, http.MethodPost, http.MethodDelete)(next)
	h = s.withProbeDetection(h)
	h = s.headers.Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = log.Middleware(s.logger)(h)
	return s.tracer.Middleware(h)
}

func (s *Server) withProbeDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := s.detector.Suspicious(r); reason != "" {
			fields := log.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
				WithClientIP(s.detector.ExtractClientIP(r))
			fields["reason"] = reason
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request", fields.ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusTooManyRequests, apiError{Error: "rate limit exceeded"})
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
