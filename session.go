package onvif

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

// service selects which discovered path a request is posted to
type service int

const (
	serviceDevice service = iota
	serviceEvents
	serviceMedia
	servicePTZ
	serviceSubscription
)

// Default service paths, used until a capabilities reply overrides them
const (
	defaultServicePath = "/onvif/device_service"
	defaultPTZPath     = "/onvif/ptz_service"
)

// pending is a request waiting to be built and sent
type pending struct {
	op  Operation
	svc service
}

// step collects what a reply asks for. Requests and consumer calls are
// run after the session lock is released.
type step struct {
	next    []pending
	effects []func()
}

func (st *step) send(op Operation, svc service) {
	st.next = append(st.next, pending{op: op, svc: svc})
}

func (st *step) notify(f func()) {
	st.effects = append(st.effects, f)
}

// Session drives one camera. All methods are safe for concurrent use and none
// of them block on the network.
type Session struct {
	host      string
	port      int
	opts      Options
	log       zerolog.Logger
	consumer  Consumer
	transport Transport
	builder   *envelopeBuilder

	// spawn runs one exchange; after schedules the delayed teardown
	spawn func(func())
	after func(time.Duration, func())

	mu           sync.Mutex
	state        State
	events       EventState
	ptzState     PTZState
	connected    bool
	usingEvents  bool
	shuttingDown bool

	paths        ServicePaths
	ptzSupported bool

	profileIndex int
	profiles     []string
	presets      presetRegistry
	presetIndex  int
	nodeToken    string
	configToken  string

	panRange  Axis
	tiltRange Axis
	zoomRange Axis
	pan       axisPosition
	tilt      axisPosition
	zoom      axisPosition

	snapshotURI string
	streamURI   string
	device      DeviceInfo
	clockSkew   time.Duration

	ctx         context.Context
	cancel      context.CancelFunc
	ready       chan struct{}
	readyClosed bool
}

func (s *Session) address() string {
	return s.builder.hostHeader()
}

// Connect starts the handshake. It does nothing if the session is already connected.
func (s *Session) Connect(useEvents bool) {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return
	}
	if s.shuttingDown {
		s.mu.Unlock()
		s.log.Debug().Msg("teardown pending, connect ignored")
		return
	}
	s.usingEvents = useEvents
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.state = StateAwaitingTime
	s.mu.Unlock()

	s.log.Debug().Bool("events", useEvents).Msg("connecting")
	s.issue(pending{op: OpGetSystemDateAndTime, svc: serviceDevice})
}

// Disconnect unsubscribes from events when they were in use, then tears the session
// down after the configured delay. In-flight replies are dropped once torn down.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return
	}
	s.shuttingDown = true
	unsubscribe := s.usingEvents && s.connected
	s.mu.Unlock()

	if unsubscribe {
		s.issue(pending{op: OpUnsubscribe, svc: serviceSubscription})
	}
	// Some cameras keep sending event callbacks when they cannot reach us
	s.after(s.opts.TeardownDelay, s.teardown)
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.cancel()
	s.connected = false
	s.state = StateDisconnected
	s.events = EventsOff
	if s.ptzSupported {
		s.ptzState = PTZUnknown
	}
	s.shuttingDown = false
	if s.readyClosed {
		s.ready = make(chan struct{})
		s.readyClosed = false
	}
	s.mu.Unlock()

	s.log.Debug().Msg("session torn down")
}

// IsConnected reports whether the camera answered the time-sync request
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SupportsPTZ reports whether the camera advertised a PTZ service
func (s *Session) SupportsPTZ() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ptzSupported
}

// GetStatus asks the camera for its current PTZ position
func (s *Session) GetStatus() {
	if s.SupportsPTZ() {
		s.SendPTZRequest(OpGetStatus)
	}
}

// AbsoluteMove sends the position set with SetAbsolutePan, SetAbsoluteTilt and SetAbsoluteZoom
func (s *Session) AbsoluteMove() {
	if s.SupportsPTZ() {
		s.SendPTZRequest(OpAbsoluteMove)
	}
}

// GotoPreset moves to the preset at the 1-based index. Index 0 is reserved for home
// and does nothing. With no presets known yet the presets are fetched instead.
func (s *Session) GotoPreset(index int) {
	if index <= 0 {
		return
	}
	s.mu.Lock()
	if !s.ptzSupported {
		s.mu.Unlock()
		return
	}
	op := OpGotoPreset
	if s.presets.empty() {
		s.log.Warn().Msg("camera did not report any presets, fetching them now")
		op = OpGetPresets
	} else {
		s.presetIndex = index - 1
	}
	s.mu.Unlock()

	s.SendPTZRequest(op)
}

// SetSelectedMediaProfile changes the profile used by profile-scoped requests
func (s *Session) SetSelectedMediaProfile(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileIndex = index
	s.checkProfileIndexLocked()
}

// SendPTZRequest sends op to the PTZ service, connecting first if needed
func (s *Session) SendPTZRequest(op Operation) {
	s.mu.Lock()
	connected, useEvents := s.connected, s.usingEvents
	s.mu.Unlock()

	if !connected {
		s.log.Debug().Stringer("op", op).Msg("not connected when a PTZ request was made, connecting now")
		s.Connect(useEvents)
	}
	s.issue(pending{op: op, svc: servicePTZ})
}

// SendEventRequest sends op to the event service
func (s *Session) SendEventRequest(op Operation) {
	s.issue(pending{op: op, svc: serviceEvents})
}

// RequestDeviceInformation refreshes the manufacturer, model and firmware details
func (s *Session) RequestDeviceInformation() {
	s.issue(pending{op: OpGetDeviceInformation, svc: serviceDevice})
}

// Notify handles an event notification the camera pushed to our callback address
func (s *Session) Notify(body string) {
	var st step
	s.mu.Lock()
	s.eventReceivedLocked(body, &st)
	s.mu.Unlock()
	s.run(&st)
}

// WaitOperational blocks until the media profiles have been received or ctx is done
func (s *Session) WaitOperational(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return errors.Annotate(ctx.Err(), "waiting for camera")
	}
}

// Status returns a copy of the session state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Address:      s.address(),
		Connected:    s.connected,
		State:        s.state,
		Events:       s.events,
		PTZ:          s.ptzState,
		SupportsPTZ:  s.ptzSupported,
		Paths:        s.paths,
		Profiles:     append([]string(nil), s.profiles...),
		ProfileIndex: s.profileIndex,
		Presets:      s.presets.list(),
		Pan:          s.pan.percent,
		Tilt:         s.tilt.percent,
		Zoom:         s.zoom.percent,
		SnapshotURI:  s.snapshotURI,
		StreamURI:    s.streamURI,
		Device:       s.device,
		ClockSkew:    s.clockSkew,
	}
}

func (s *Session) pathLocked(svc service) string {
	switch svc {
	case serviceEvents:
		return s.paths.Events
	case serviceMedia:
		return s.paths.Media
	case servicePTZ:
		return s.paths.PTZ
	case serviceSubscription:
		return s.paths.Subscription
	}
	return s.paths.Device
}

func (s *Session) bodyContextLocked() bodyContext {
	bc := bodyContext{
		nodeToken:   s.nodeToken,
		configToken: s.configToken,
		callbackURL: s.opts.CallbackURL,
		pan:         s.pan.native,
		tilt:        s.tilt.native,
		zoom:        s.zoom.native,
	}
	if len(s.profiles) > 0 {
		idx := s.profileIndex
		if idx < 0 || idx >= len(s.profiles) {
			idx = 0
		}
		bc.profileToken = s.profiles[idx]
	}
	if s.presetIndex >= 0 && s.presetIndex < len(s.presets.tokens) {
		bc.presetToken = s.presets.tokens[s.presetIndex]
	}
	return bc
}

// issue builds and sends each request. Requests whose prerequisites are not known
// yet are skipped.
func (s *Session) issue(reqs ...pending) {
	for _, p := range reqs {
		ctx, req, err := s.prepare(p)
		if err != nil {
			if errors.IsNotFound(err) {
				s.log.Debug().Err(err).Stringer("op", p.op).Msg("request not ready, skipped")
			} else {
				s.log.Warn().Err(err).Stringer("op", p.op).Msg("could not build request")
			}
			continue
		}
		s.spawn(func() { s.exchange(ctx, req) })
	}
}

func (s *Session) prepare(p pending) (context.Context, *Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := buildBody(p.op, s.bodyContextLocked())
	if err != nil {
		return nil, nil, err
	}
	req, err := s.builder.Build(p.op, s.pathLocked(p.svc), body)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return s.ctx, req, nil
}

func (s *Session) exchange(ctx context.Context, req *Request) {
	s.log.Trace().Stringer("op", req.Operation).Str("url", req.URL).Str("body", req.Body).Msg("sending request")

	reply, err := s.transport.Exchange(ctx, req)
	if ctx.Err() != nil {
		s.log.Debug().Stringer("op", req.Operation).Msg("session torn down, reply dropped")
		return
	}
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			ev := s.log.Warn().Err(err).Stringer("op", req.Operation)
			if fault := statusErr.Fault(); fault != nil {
				ev = ev.AnErr("fault", fault)
			}
			ev.Msg("camera rejected request")
			return
		}
		s.transportFailed(req.Operation, err)
		return
	}

	s.handleReply(string(reply))
}

func (s *Session) transportFailed(op Operation, err error) {
	s.log.Debug().Err(err).Stringer("op", op).Int("port", s.port).
		Msg("camera is not reachable on its ONVIF port, or the port is wrong")

	s.mu.Lock()
	connected := s.connected
	if !connected && !s.shuttingDown {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if connected {
		s.Disconnect()
	}
}

func (s *Session) handleReply(msg string) {
	s.log.Trace().Str("reply", msg).Msg("reply received")

	kind := classifyReply(msg)
	var st step
	s.mu.Lock()
	s.transitionLocked(kind, msg, &st)
	s.mu.Unlock()
	s.run(&st)
}

func (s *Session) run(st *step) {
	for _, f := range st.effects {
		f()
	}
	s.issue(st.next...)
}

// replyKind is what a reply was classified as
type replyKind int

const (
	replyUnknown replyKind = iota
	replyPullMessages
	replyRenew
	replySystemDateAndTime
	replyCapabilities
	replyProfiles
	replyServiceCapabilities
	replyEventProperties
	replyUnsubscribe
	replySubscribe
	replyCreatePullPoint
	replyPTZStatus
	replyPresets
	replyConfigurations
	replyConfigurationOptions
	replyNodes
	replyDeviceInformation
	replySnapshotURI
	replyStreamURI
)

// replyMarkers are checked in order and the first hit wins. UnsubscribeResponse
// has to precede SubscribeResponse, which it contains.
var replyMarkers = []struct {
	marker string
	kind   replyKind
}{
	{"PullMessagesResponse", replyPullMessages},
	{"RenewResponse", replyRenew},
	{"GetSystemDateAndTimeResponse", replySystemDateAndTime},
	{"GetCapabilitiesResponse", replyCapabilities},
	{"GetProfilesResponse", replyProfiles},
	{"GetServiceCapabilitiesResponse", replyServiceCapabilities},
	{"GetEventPropertiesResponse", replyEventProperties},
	{"UnsubscribeResponse", replyUnsubscribe},
	{"SubscribeResponse", replySubscribe},
	{"CreatePullPointSubscriptionResponse", replyCreatePullPoint},
	{"GetStatusResponse", replyPTZStatus},
	{"GetPresetsResponse", replyPresets},
	{"GetConfigurationsResponse", replyConfigurations},
	{"GetConfigurationOptionsResponse", replyConfigurationOptions},
	{"GetNodesResponse", replyNodes},
	{"GetDeviceInformationResponse", replyDeviceInformation},
	{"GetSnapshotUriResponse", replySnapshotURI},
	{"GetStreamUriResponse", replyStreamURI},
}

func classifyReply(msg string) replyKind {
	for _, m := range replyMarkers {
		if strings.Contains(msg, m.marker) {
			return m.kind
		}
	}
	return replyUnknown
}

func (s *Session) transitionLocked(kind replyKind, msg string, st *step) {
	switch kind {
	case replyPullMessages:
		s.eventReceivedLocked(msg, st)

	case replyRenew:
		st.send(OpPullMessages, serviceSubscription)

	case replySystemDateAndTime:
		s.connected = true
		s.state = StateAwaitingCapabilities
		st.send(OpGetCapabilities, serviceDevice)
		s.parseDateAndTimeLocked(msg)

	case replyCapabilities:
		s.parseCapabilitiesLocked(msg)
		s.state = StateAwaitingProfiles
		st.send(OpGetProfiles, serviceMedia)

	case replyProfiles:
		s.parseProfilesLocked(msg)
		s.state = StateOperational
		if !s.readyClosed {
			close(s.ready)
			s.readyClosed = true
		}
		st.send(OpGetSnapshotUri, serviceMedia)
		st.send(OpGetStreamUri, serviceMedia)
		if s.ptzSupported {
			s.ptzState = PTZAwaitingNodes
			st.send(OpGetNodes, servicePTZ)
		}
		if s.usingEvents {
			s.events = EventsSubscribing
			st.send(OpGetEventProperties, serviceEvents)
			st.send(OpGetServiceCapabilities, serviceEvents)
		}

	case replyServiceCapabilities:
		if strings.Contains(msg, `WSSubscriptionPolicySupport="true"`) {
			st.send(OpSubscribe, serviceEvents)
		}

	case replyEventProperties:
		st.send(OpCreatePullPointSubscription, serviceEvents)

	case replyUnsubscribe:
		s.events = EventsOff
		s.log.Debug().Msg("unsubscribed from events")

	case replySubscribe:
		s.log.Info().Msg("subscribe appears to be working for alarms and events")

	case replyCreatePullPoint:
		addr := StripHost(ExtractField(msg, "SubscriptionReference>", "Address>"))
		if addr != "" {
			s.paths.Subscription = addr
		} else {
			s.log.Debug().Msg("pull point reply carried no subscription address")
		}
		s.events = EventsSubscribed
		s.log.Debug().Str("path", s.paths.Subscription).Msg("pull point subscription created")
		st.send(OpPullMessages, serviceSubscription)

	case replyPTZStatus:
		if s.parsePTZStatusLocked(msg) {
			pan, tilt, zoom := s.pan.percent, s.tilt.percent, s.zoom.percent
			st.notify(func() { s.consumer.PTZPositionChanged(pan, tilt, zoom) })
		}

	case replyPresets:
		if s.parsePresetsLocked(msg) {
			presets := s.presets.list()
			st.notify(func() { s.consumer.PresetsUpdated(presets) })
		}

	case replyConfigurations:
		s.configToken = ExtractField(msg, "PTZConfiguration", `token="`)
		s.ptzState = PTZReady
		s.log.Debug().Str("token", s.configToken).Msg("PTZ configuration token")
		st.send(OpGetPresets, servicePTZ)
		st.send(OpGetConfigurationOptions, servicePTZ)

	case replyConfigurationOptions:
		s.parseConfigurationOptionsLocked(msg)

	case replyNodes:
		s.nodeToken = ExtractField(msg, "PTZNode", `token="`)
		if s.nodeToken == "" {
			s.nodeToken = ExtractField(msg, "", `token="`)
		}
		s.ptzState = PTZAwaitingConfig
		s.log.Debug().Str("token", s.nodeToken).Msg("PTZ node token")
		st.send(OpGetStatus, servicePTZ)
		st.send(OpGetConfigurations, servicePTZ)

	case replyDeviceInformation:
		s.parseDeviceInformationLocked(msg)

	case replySnapshotURI:
		s.snapshotReceivedLocked(msg, st)

	case replyStreamURI:
		s.streamReceivedLocked(msg, st)

	default:
		s.log.Trace().Msg("reply not recognised, ignored")
	}
}
