package onvif

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

// NewSession creates a disconnected session for one camera. Call Connect to start
// the handshake.
func NewSession(params ConnectionParams, consumer Consumer, opts Options) (*Session, error) {
	if consumer == nil {
		return nil, errors.NotValidf("nil consumer")
	}
	host, port, path, err := parseAddress(params.Address)
	if err != nil {
		return nil, errors.Trace(err)
	}

	if opts.TeardownDelay == 0 {
		opts.TeardownDelay = DefaultTeardownDelay
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = NewHTTPTransport(opts.ConnectTimeout, opts.RequestTimeout)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	s := &Session{
		host:      host,
		port:      port,
		opts:      opts,
		consumer:  consumer,
		transport: transport,
		builder:   newEnvelopeBuilder(host, port, params.Username, params.Password),
		spawn:     func(f func()) { go f() },
		after:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },

		paths: ServicePaths{
			Device:       defaultServicePath,
			Events:       defaultServicePath,
			Media:        defaultServicePath,
			PTZ:          defaultPTZPath,
			Subscription: defaultServicePath,
		},
		ptzSupported: true,
		profileIndex: params.ProfileIndex,

		panRange:  DefaultPanRange,
		tiltRange: DefaultTiltRange,
		zoomRange: DefaultZoomRange,

		ready: make(chan struct{}),
	}
	if path != "" {
		s.paths.Device = path
	}
	s.log = logger.With().Str("camera", s.address()).Logger()
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// Percentages start consistent with the zero native position
	s.pan.setNative(s.panRange, 0)
	s.tilt.setNative(s.tiltRange, 0)
	s.zoom.setNative(s.zoomRange, 0)

	return s, nil
}

// parseAddress splits "host", "host:port" or "host:port/path", with an optional
// http:// prefix. The port defaults to 80.
func parseAddress(address string) (host string, port int, path string, err error) {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, "http://")
	if address == "" {
		return "", 0, "", errors.NotValidf("empty camera address")
	}

	hostPort := address
	if idx := strings.Index(address, "/"); idx != -1 {
		hostPort, path = address[:idx], address[idx:]
	}

	host, port = hostPort, DefaultPort
	if idx := strings.Index(hostPort, ":"); idx != -1 {
		host = hostPort[:idx]
		port, err = strconv.Atoi(hostPort[idx+1:])
		if err != nil || port <= 0 || port > 65535 {
			return "", 0, "", errors.NotValidf("port in camera address %q", address)
		}
	}
	if host == "" {
		return "", 0, "", errors.NotValidf("host in camera address %q", address)
	}
	return host, port, path, nil
}
