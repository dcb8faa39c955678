package main

import (
	"context"
	"fmt"
	"os"
	"time"

	onvif "github.com/SridarDhandapani/go-onvif"
	"github.com/SridarDhandapani/go-onvif/internal/config"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	settle  time.Duration

	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "onvifctl",
	Short: "Control an ONVIF camera",
	Long: `Connect to an ONVIF camera, receive its motion and analytics events,
and drive its PTZ head.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.New(cfgFile))
		if err != nil {
			return errors.Trace(err)
		}
		cfg = loaded
		logger = newLogger(cfg.Log.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.onvifctl.yaml)")
	rootCmd.PersistentFlags().DurationVar(&settle, "settle", 3*time.Second,
		"how long one-shot commands wait for follow-up replies")

	rootCmd.AddCommand(serveCmd, statusCmd, ptzCmd, presetCmd)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

// newSession builds a session for the configured camera
func newSession(consumer onvif.Consumer, callbackURL string) (*onvif.Session, error) {
	opts := onvif.DefaultOptions()
	opts.Logger = &logger
	opts.CallbackURL = callbackURL
	opts.TiltUsesPanRange = cfg.PTZ.TiltUsesPanRange

	s, err := onvif.NewSession(onvif.ConnectionParams{
		Address:      cfg.Camera.Address,
		Username:     cfg.Camera.Username,
		Password:     cfg.Camera.Password,
		ProfileIndex: cfg.Camera.Profile,
	}, consumer, opts)
	if err != nil {
		return nil, errors.Annotate(err, "creating session")
	}
	return s, nil
}

// oneShot connects without events, waits for the handshake, runs fn, then lets
// follow-up replies arrive before disconnecting
func oneShot(ctx context.Context, consumer onvif.Consumer, fn func(s *onvif.Session) error) (*onvif.Session, error) {
	s, err := newSession(consumer, "")
	if err != nil {
		return nil, err
	}

	s.Connect(false)
	waitCtx, cancel := context.WithTimeout(ctx, onvif.DefaultConnectTimeout+settle)
	defer cancel()
	if err := s.WaitOperational(waitCtx); err != nil {
		s.Disconnect()
		return nil, errors.Annotate(err, "camera did not finish connecting")
	}
	// PTZ nodes, configuration and presets follow the profiles reply
	time.Sleep(settle)

	if err := fn(s); err != nil {
		s.Disconnect()
		return nil, err
	}
	time.Sleep(settle)

	s.Disconnect()
	time.Sleep(onvif.DefaultTeardownDelay)
	return s, nil
}
