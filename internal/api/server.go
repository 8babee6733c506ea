package api

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	srv    *http.Server
	config ServerConfig
	logger Logger
}

func NewServer(h *Handler, config ServerConfig, log Logger) *Server {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              config.Address,
			Handler:           h.Routes(),
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      config.WriteTimeout,
		},
		config: config,
		logger: log.With(map[string]interface{}{
			"component": "http-server",
		}),
	}
}

// Run blocks until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{
			"address": s.config.Address,
		})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down", nil)
	return s.srv.Shutdown(sctx)
}
