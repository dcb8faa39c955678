// Package onvif provides an ONVIF camera session: the request chain that runs after
// connecting, PTZ control and event subscription for motion and analytics alarms.
package onvif

import (
	"time"

	"github.com/rs/zerolog"
)

// ConnectionParams identifies one camera
type ConnectionParams struct {
	// Address is "host", "host:port" or "host:port/path". An http:// prefix is accepted.
	Address  string
	Username string
	Password string
	// ProfileIndex selects the media profile used by profile-scoped operations
	ProfileIndex int
}

// Options tunes a Session. Use DefaultOptions and override what you need.
type Options struct {
	// Transport sends built requests. Nil means an HTTPTransport built from the timeouts below.
	Transport Transport
	Logger    *zerolog.Logger
	// CallbackURL is sent as the Subscribe ConsumerReference. Subscribe is skipped when empty.
	CallbackURL string
	// TiltUsesPanRange keeps the historical tilt mapping, which scales tilt
	// percentages with the pan range.
	TiltUsesPanRange bool
	TeardownDelay    time.Duration
	RequestTimeout   time.Duration
	ConnectTimeout   time.Duration
}

// Default configuration
const (
	DefaultPort           = 80
	DefaultTeardownDelay  = 500 * time.Millisecond
	DefaultRequestTimeout = 70 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		TiltUsesPanRange: true,
		TeardownDelay:    DefaultTeardownDelay,
		RequestTimeout:   DefaultRequestTimeout,
		ConnectTimeout:   DefaultConnectTimeout,
	}
}

// State is the position of a session in the connect handshake
type State int

const (
	StateDisconnected State = iota
	StateAwaitingTime
	StateAwaitingCapabilities
	StateAwaitingProfiles
	StateOperational
)

var stateNames = [...]string{"Disconnected", "AwaitingTime", "AwaitingCapabilities", "AwaitingProfiles", "Operational"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// MarshalText lets State render by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventState tracks the event subscription sub-sequence
type EventState int

const (
	EventsOff EventState = iota
	EventsSubscribing
	EventsSubscribed
)

func (s EventState) String() string {
	switch s {
	case EventsOff:
		return "Off"
	case EventsSubscribing:
		return "Subscribing"
	case EventsSubscribed:
		return "Subscribed"
	}
	return "Unknown"
}

// MarshalText lets EventState render by name in JSON
func (s EventState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PTZState tracks PTZ discovery
type PTZState int

const (
	PTZUnknown PTZState = iota
	PTZAwaitingNodes
	PTZAwaitingConfig
	PTZReady
	PTZUnsupported
)

func (s PTZState) String() string {
	switch s {
	case PTZUnknown:
		return "Unknown"
	case PTZAwaitingNodes:
		return "AwaitingNodes"
	case PTZAwaitingConfig:
		return "AwaitingConfig"
	case PTZReady:
		return "Ready"
	case PTZUnsupported:
		return "Unsupported"
	}
	return "Unknown"
}

// MarshalText lets PTZState render by name in JSON
func (s PTZState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Preset is one PTZ preset. Index starts at 1, 0 is reserved for home.
type Preset struct {
	Index int    `json:"index"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

// DeviceInfo holds the GetDeviceInformation reply
type DeviceInfo struct {
	Manufacturer    string `json:"manufacturer,omitempty"`
	Model           string `json:"model,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	HardwareId      string `json:"hardwareId,omitempty"`
}

// ServicePaths are the camera service addresses, host and port stripped
type ServicePaths struct {
	Device       string `json:"device"`
	Events       string `json:"events"`
	Media        string `json:"media"`
	PTZ          string `json:"ptz"`
	Subscription string `json:"subscription"`
}

// Status is a point-in-time copy of a session
type Status struct {
	Address      string        `json:"address"`
	Connected    bool          `json:"connected"`
	State        State         `json:"state"`
	Events       EventState    `json:"events"`
	PTZ          PTZState      `json:"ptz"`
	SupportsPTZ  bool          `json:"supportsPtz"`
	Paths        ServicePaths  `json:"paths"`
	Profiles     []string      `json:"profiles"`
	ProfileIndex int           `json:"profileIndex"`
	Presets      []Preset      `json:"presets"`
	Pan          float64       `json:"pan"`
	Tilt         float64       `json:"tilt"`
	Zoom         float64       `json:"zoom"`
	SnapshotURI  string        `json:"snapshotUri,omitempty"`
	StreamURI    string        `json:"streamUri,omitempty"`
	Device       DeviceInfo    `json:"device"`
	ClockSkew    time.Duration `json:"clockSkew"`
}

// AlarmKind names the alarm an event topic maps to
type AlarmKind string

const (
	CellMotionAlarm     AlarmKind = "cellMotionAlarm"
	MotionAlarm         AlarmKind = "motionAlarm"
	FieldDetectionAlarm AlarmKind = "fieldDetectionAlarm"
	LineCrossingAlarm   AlarmKind = "lineCrossingAlarm"
	TamperAlarm         AlarmKind = "tamperAlarm"
	StorageAlarm        AlarmKind = "storageAlarm"
	TooDarkAlarm        AlarmKind = "tooDarkAlarm"
	SceneChangeAlarm    AlarmKind = "sceneChangeAlarm"
	TooBrightAlarm      AlarmKind = "tooBrightAlarm"
	TooBlurryAlarm      AlarmKind = "tooBlurryAlarm"
)

// Consumer receives what a session learns from the camera. Calls are never made
// while the session holds its lock, so implementations may call back into the session.
type Consumer interface {
	MotionDetected(kind AlarmKind)
	NoMotionDetected(kind AlarmKind)
	AudioDetected()
	NoAudioDetected()
	ChangeAlarmState(kind AlarmKind, on bool)

	PresetsUpdated(presets []Preset)
	PTZPositionChanged(pan, tilt, zoom float64)

	// SnapshotURI and StreamURI report the currently configured URIs. The session
	// only writes a discovered URI when the matching getter returns "".
	SnapshotURI() string
	SetSnapshotURI(uri string)
	StreamURI() string
	SetStreamURI(uri string)
}
