package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/custodia-labs/rlm/internal/logger"
)

// Server serves the REST API.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server listening on addr. An empty apiKey disables
// authentication.
func NewServer(ports *Ports, addr, apiKey string) (*Server, error) {
	router, err := NewRouter(ports, apiKey)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http: shutdown: %v", err)
		}
	}()

	logger.Info("http: listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
