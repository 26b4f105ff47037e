// Package server runs the HTTP API together with its background components
// and manages their lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/roastme/internal/config"
	"github.com/edgard/roastme/internal/logger"
)

// Server owns the HTTP listener, the task scheduler and the optional
// Telegram listener.
type Server struct {
	logger          *slog.Logger
	httpServer      *http.Server
	scheduler       *Scheduler
	tgBot           *tgbot.Bot
	shutdownTimeout time.Duration

	ln net.Listener
}

// NewServer creates a server for handler. scheduler and tgBot may be nil.
func NewServer(log *slog.Logger, cfg config.ServerConfig, handler http.Handler, scheduler *Scheduler, tgBot *tgbot.Bot) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		logger: log.With("component", "server"),
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		scheduler:       scheduler,
		tgBot:           tgBot,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run serves until ctx is cancelled or a component fails, then shuts every
// component down.
func (s *Server) Run(ctx context.Context) error {
	ln := s.ln
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", s.httpServer.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	if s.scheduler != nil {
		g.Go(func() error {
			if err := s.scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			if err := s.scheduler.Stop(); err != nil {
				s.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	if s.tgBot != nil {
		g.Go(func() error {
			s.logger.Info("Starting Telegram bot listener...")
			s.tgBot.Start(gCtx)
			if gCtx.Err() == nil {
				return errors.New("telegram listener stopped unexpectedly")
			}
			s.logger.Info("Telegram bot listener stopped")
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Server stopped due to error", "error", err)
		return err
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}
