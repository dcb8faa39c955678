package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SridarDhandapani/go-onvif/api"
	"github.com/gin-gonic/gin"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the camera and serve the event callback and control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		state := api.NewCameraState(logger, "", "")
		session, err := newSession(state, cfg.Server.CallbackURL)
		if err != nil {
			return err
		}

		gin.SetMode(gin.ReleaseMode)
		handler := api.NewHandler(logger, session, state, cfg.Camera.Events)
		srv := &http.Server{
			Addr:    cfg.Server.Listen,
			Handler: handler.Router(),
		}

		errc := make(chan error, 1)
		go func() {
			logger.Info().Str("listen", srv.Addr).Msg("serving")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errc <- err
			}
			close(errc)
		}()

		session.Connect(cfg.Camera.Events)

		select {
		case <-ctx.Done():
		case err := <-errc:
			if err != nil {
				session.Disconnect()
				return errors.Annotate(err, "http server")
			}
		}

		logger.Info().Msg("shutting down")
		session.Disconnect()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Trace(srv.Shutdown(shutdownCtx))
	},
}
