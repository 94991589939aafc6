package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Mansoor88-6/overtime-agent/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(open opener) *cobra.Command {
	var (
		port    int
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the attendance API for the browser form on localhost",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.log

			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}

			// Warm the employee cache; the form still works if this fails
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(a.cfg.Backend.Timeout)*time.Second)
			if _, err := a.service.LoadReferenceData(ctx, false); err != nil {
				log.Warn("Failed to preload reference data", zap.Error(err))
			}
			cancel()

			handlers := server.NewAttendanceServer(a.service, a.newWorkflow, log.Logger)
			addr := fmt.Sprintf("localhost:%d", port)
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      server.NewRouter(handlers, origins, log.Logger),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: time.Duration(a.cfg.Backend.Timeout)*time.Second + 15*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("Starting attendance server", zap.String("address", addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			// Wait for interrupt signal to gracefully shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case sig := <-quit:
				log.Info("Received shutdown signal", zap.String("signal", sig.String()))
			case err, ok := <-errCh:
				if ok {
					return fmt.Errorf("attendance server: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("Attendance server shutdown error", zap.Error(err))
				return nil
			}
			log.Info("Attendance server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8484, "Listen port (default from config)")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "Allowed browser origin (repeatable, default any)")
	return cmd
}
