// Package server exposes a Completer over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jdgilhuly/aicomplete/pkg/provider"
)

// CompleteRequest is the body of POST /v1/complete.
type CompleteRequest struct {
	System   string             `json:"system"`
	Messages []provider.Message `json:"messages"`
}

// CompleteResponse is the success body of POST /v1/complete.
type CompleteResponse struct {
	Text string `json:"text"`
}

// ProviderResponse describes the active provider. It never carries the
// credential.
type ProviderResponse struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Endpoint  string `json:"endpoint"`
	MaxTokens int    `json:"max_tokens"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen address used by Start. Default ":8080".
func WithAddress(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithDefaultSystem sets the system instruction used when a request has none.
func WithDefaultSystem(system string) Option {
	return func(s *Server) { s.system = system }
}

type Server struct {
	addr      string
	system    string
	completer provider.Completer
	resolver  *provider.Resolver
	engine    *gin.Engine
}

// New returns a Server answering completions with c and describing the
// provider chosen by r.
func New(c provider.Completer, r *provider.Resolver, opts ...Option) *Server {
	s := &Server{
		addr:      ":8080",
		completer: c,
		resolver:  r,
		engine:    gin.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := s.engine.Group("/v1")
	api.POST("/complete", s.complete)
	api.GET("/provider", s.describeProvider)
}

// Handler returns the HTTP handler serving the routes.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error(), Code: "bad_request"})
		return
	}
	system := req.System
	if system == "" {
		system = s.system
	}

	text, err := s.completer.Complete(c.Request.Context(), req.Messages, system)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CompleteResponse{Text: text})
}

func (s *Server) describeProvider(c *gin.Context) {
	rc, err := s.resolver.Resolve()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ProviderResponse{
		Provider:  rc.Provider.String(),
		Model:     rc.Model,
		Endpoint:  rc.Endpoint,
		MaxTokens: rc.MaxTokens,
	})
}

func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// classify maps an error kind to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusInternalServerError, "unknown_provider"
	case errors.Is(err, provider.ErrMissingCredential):
		return http.StatusInternalServerError, "missing_credential"
	case errors.Is(err, provider.ErrInvalidConfig):
		return http.StatusInternalServerError, "invalid_config"
	case errors.Is(err, provider.ErrTransport):
		return http.StatusBadGateway, "transport"
	case errors.Is(err, provider.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed_response"
	case errors.Is(err, provider.ErrEmptyChoices):
		return http.StatusUnprocessableEntity, "empty_choices"
	case errors.Is(err, provider.ErrEmptyContent):
		return http.StatusUnprocessableEntity, "empty_content"
	}
	return http.StatusInternalServerError, "internal"
}
