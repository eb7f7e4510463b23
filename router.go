package oasbind

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Service is a fully wired HTTP service: one routable unit per contract
// operation, composed from the parser, binder, dispatcher, response adapter,
// and problem-detail mapper, plus the cross-cutting concerns (trailing-slash
// normalization, auth gate, health endpoint). It implements http.Handler.
//
// The route table and schemas are built once in New and read-only afterward;
// they are shared across concurrent requests without synchronization. All
// per-request state lives on the stack of one ServeHTTP call.
type Service struct {
	mux        *http.ServeMux
	middleware []Middleware
	routes     []Route

	doc    *Document
	name   string
	prefix string
	auth   Authenticator
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAuth attaches a table-level auth dependency. It runs before every
// operation, including otherwise-public ones; there is no per-route override.
func WithAuth(a Authenticator) Option {
	return func(s *Service) { s.auth = a }
}

// WithLogger sets the logger used by the service and its middleware.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithServiceName overrides the service name reported by the health
// endpoint. Defaults to the contract's info title.
func WithServiceName(name string) Option {
	return func(s *Service) { s.name = name }
}

// WithPathPrefix mounts every contract route under the given prefix.
// The health endpoint stays at the root.
func WithPathPrefix(prefix string) Option {
	return func(s *Service) { s.prefix = strings.TrimRight(prefix, "/") }
}

// New assembles a service from a parsed contract document and a handler
// table. It fails — these are configuration bugs, not runtime events — when
// the document does not yield a valid route table, when a declared operation
// has no handler, or when a handler matches no declared operation.
func New(doc *Document, handlers Handlers, opts ...Option) (*Service, error) {
	routes, err := doc.Routes()
	if err != nil {
		return nil, err
	}

	s := &Service{
		mux:    http.NewServeMux(),
		routes: routes,
		doc:    doc,
		name:   doc.Info.Title,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.name == "" {
		s.name = "oasbind"
	}

	declared := make(map[string]bool, len(routes))
	for _, rt := range routes {
		declared[rt.OperationID] = true
		if _, ok := handlers[rt.OperationID]; !ok {
			return nil, fmt.Errorf("%w: no handler registered for operation %q (%s %s)",
				ErrSpecLoad, rt.OperationID, rt.Method, rt.Path)
		}
	}
	for id := range handlers {
		if !declared[id] {
			return nil, fmt.Errorf("%w: handler %q matches no declared operation", ErrSpecLoad, id)
		}
	}

	healthShadowed := false
	for _, rt := range routes {
		s.mux.Handle(rt.Method+" "+s.prefix+rt.Path, s.operationHandler(rt, handlers[rt.OperationID]))
		if rt.Method == http.MethodGet && s.prefix+rt.Path == "/health" {
			healthShadowed = true
		}
	}
	if !healthShadowed {
		s.mux.HandleFunc("GET /health", s.handleHealth)
	}

	return s, nil
}

// Routes returns the parsed route table.
func (s *Service) Routes() []Route { return s.routes }

// ServeHTTP implements http.Handler. Trailing-slash normalization runs
// outermost, then user middleware in the order added.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(s.mux)
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	handler = TrailingSlash()(handler)
	handler.ServeHTTP(w, r)
}

// Use adds middleware to the service. Middleware is applied in the order
// added.
func (s *Service) Use(mw ...Middleware) {
	s.middleware = append(s.middleware, mw...)
}

// operationHandler wires one route: auth gate, bind, dispatch, adapt, encode.
// Every failure on the way is classified exactly once into a problem detail;
// the transport only ever sees a clean payload/status pair.
func (s *Service) operationHandler(route Route, h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ac AuthContext
		if s.auth != nil {
			ctx, err := s.auth.Authenticate(r)
			if err != nil {
				writeProblem(w, err)
				return
			}
			ac = ctx
		}

		in, err := bindInput(route, r)
		if err != nil {
			writeProblem(w, err)
			return
		}
		if ac != nil {
			in[authInputKey] = ac
		}

		payload, status, err := dispatch(r.Context(), route, h, in)
		if err != nil {
			writeProblem(w, err)
			return
		}

		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, Adapt(payload, route, status), status)
	})
}

// ListenAndServe starts an HTTP server on the given address. It blocks until
// the context is cancelled, then shuts down gracefully.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
