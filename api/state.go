package api

import (
	"sync"
	"time"

	onvif "github.com/SridarDhandapani/go-onvif"
	"github.com/rs/zerolog"
)

// Alarm is the last known state of one alarm kind
type Alarm struct {
	On      bool      `json:"on"`
	Changed time.Time `json:"changed"`
}

// CameraState records what a session reports so the API can serve it.
// It implements onvif.Consumer.
type CameraState struct {
	log zerolog.Logger
	now func() time.Time

	mu          sync.RWMutex
	alarms      map[onvif.AlarmKind]Alarm
	audio       Alarm
	presets     []onvif.Preset
	pan         float64
	tilt        float64
	zoom        float64
	snapshotURI string
	streamURI   string
}

// NewCameraState creates a recorder. Preconfigured URIs are never overwritten
// by the ones the camera reports.
func NewCameraState(log zerolog.Logger, snapshotURI, streamURI string) *CameraState {
	return &CameraState{
		log:         log,
		now:         time.Now,
		alarms:      map[onvif.AlarmKind]Alarm{},
		snapshotURI: snapshotURI,
		streamURI:   streamURI,
	}
}

func (c *CameraState) setAlarm(kind onvif.AlarmKind, on bool) {
	c.mu.Lock()
	c.alarms[kind] = Alarm{On: on, Changed: c.now()}
	c.mu.Unlock()
	c.log.Info().Str("alarm", string(kind)).Bool("on", on).Msg("alarm state")
}

// MotionDetected records an alarm as on
func (c *CameraState) MotionDetected(kind onvif.AlarmKind) { c.setAlarm(kind, true) }
// NoMotionDetected records an alarm as off
func (c *CameraState) NoMotionDetected(kind onvif.AlarmKind) { c.setAlarm(kind, false) }

// ChangeAlarmState records the state of an alarm
func (c *CameraState) ChangeAlarmState(kind onvif.AlarmKind, on bool) { c.setAlarm(kind, on) }

// AudioDetected records that sound was detected
func (c *CameraState) AudioDetected() {
	c.mu.Lock()
	c.audio = Alarm{On: true, Changed: c.now()}
	c.mu.Unlock()
	c.log.Info().Msg("audio detected")
}

// NoAudioDetected records that sound stopped
func (c *CameraState) NoAudioDetected() {
	c.mu.Lock()
	c.audio = Alarm{On: false, Changed: c.now()}
	c.mu.Unlock()
}

// PresetsUpdated replaces the preset list
func (c *CameraState) PresetsUpdated(presets []onvif.Preset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presets = presets
}

// PTZPositionChanged records the position as percentages
func (c *CameraState) PTZPositionChanged(pan, tilt, zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pan, c.tilt, c.zoom = pan, tilt, zoom
}

// SnapshotURI returns the snapshot path, empty until known
func (c *CameraState) SnapshotURI() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotURI
}

// SetSnapshotURI stores the snapshot path
func (c *CameraState) SetSnapshotURI(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshotURI = uri
}

// StreamURI returns the stream URI, empty until known
func (c *CameraState) StreamURI() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.streamURI
}

// SetStreamURI stores the stream URI
func (c *CameraState) SetStreamURI(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streamURI = uri
}

// Snapshot is the JSON view of a CameraState
type Snapshot struct {
	Alarms      map[onvif.AlarmKind]Alarm `json:"alarms"`
	Audio       Alarm                     `json:"audio"`
	Presets     []onvif.Preset            `json:"presets"`
	Pan         float64                   `json:"pan"`
	Tilt        float64                   `json:"tilt"`
	Zoom        float64                   `json:"zoom"`
	SnapshotURI string                    `json:"snapshotUri"`
	StreamURI   string                    `json:"streamUri"`
}

// Snapshot returns a copy of the recorded state
func (c *CameraState) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	alarms := make(map[onvif.AlarmKind]Alarm, len(c.alarms))
	for k, v := range c.alarms {
		alarms[k] = v
	}
	return Snapshot{
		Alarms:      alarms,
		Audio:       c.audio,
		Presets:     append([]onvif.Preset(nil), c.presets...),
		Pan:         c.pan,
		Tilt:        c.tilt,
		Zoom:        c.zoom,
		SnapshotURI: c.snapshotURI,
		StreamURI:   c.streamURI,
	}
}
