package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	onvif "github.com/SridarDhandapani/go-onvif"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	calls  []string
	status onvif.Status
	pan    float64
	tilt   float64
	zoom   float64
	index  int
	op     onvif.Operation
	body   string
}

func (f *fakeCamera) Connect(useEvents bool) {
	if useEvents {
		f.calls = append(f.calls, "connect:events")
		return
	}
	f.calls = append(f.calls, "connect")
}
func (f *fakeCamera) Disconnect()          { f.calls = append(f.calls, "disconnect") }
func (f *fakeCamera) Status() onvif.Status { return f.status }
func (f *fakeCamera) GetStatus()           { f.calls = append(f.calls, "getstatus") }
func (f *fakeCamera) SetAbsolutePan(p float64) {
	f.pan = p
	f.calls = append(f.calls, "pan")
}
func (f *fakeCamera) SetAbsoluteTilt(p float64) {
	f.tilt = p
	f.calls = append(f.calls, "tilt")
}
func (f *fakeCamera) SetAbsoluteZoom(p float64) {
	f.zoom = p
	f.calls = append(f.calls, "zoom")
}
func (f *fakeCamera) AbsoluteMove() { f.calls = append(f.calls, "move") }
func (f *fakeCamera) GotoPreset(index int) {
	f.index = index
	f.calls = append(f.calls, "preset")
}
func (f *fakeCamera) SetSelectedMediaProfile(index int) {
	f.index = index
	f.calls = append(f.calls, "profile")
}
func (f *fakeCamera) SendPTZRequest(op onvif.Operation) {
	f.op = op
	f.calls = append(f.calls, "op")
}
func (f *fakeCamera) Notify(body string) {
	f.body = body
	f.calls = append(f.calls, "notify")
}

func setupRouter(camera *fakeCamera) (*gin.Engine, *CameraState) {
	gin.SetMode(gin.TestMode)
	state := NewCameraState(zerolog.Nop(), "", "")
	return NewHandler(zerolog.Nop(), camera, state, true).Router(), state
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestEventCallback(t *testing.T) {
	camera := &fakeCamera{}
	r, _ := setupRouter(camera)

	w := serve(r, http.MethodPost, EventPath, "<Notify/>")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<Notify/>", camera.body)
}

func TestConnectDisconnect(t *testing.T) {
	camera := &fakeCamera{}
	r, _ := setupRouter(camera)

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/connect", "").Code)
	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/disconnect", "").Code)
	assert.Equal(t, []string{"connect:events", "disconnect"}, camera.calls)
}

func TestStatus(t *testing.T) {
	camera := &fakeCamera{status: onvif.Status{Connected: true, SupportsPTZ: true}}
	r, state := setupRouter(camera)
	state.MotionDetected(onvif.CellMotionAlarm)
	state.PresetsUpdated([]onvif.Preset{{Index: 1, Token: "t1", Name: "Door"}})

	w := serve(r, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Session map[string]any `json:"session"`
		Camera  Snapshot       `json:"camera"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Session)
	assert.True(t, got.Camera.Alarms[onvif.CellMotionAlarm].On)
	require.Len(t, got.Camera.Presets, 1)
	assert.Equal(t, "Door", got.Camera.Presets[0].Name)
}

func TestAbsoluteMove(t *testing.T) {
	camera := &fakeCamera{status: onvif.Status{SupportsPTZ: true}}
	r, _ := setupRouter(camera)

	w := serve(r, http.MethodPost, "/ptz/absolute", `{"pan": 25, "zoom": 80}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"pan", "zoom", "move"}, camera.calls)
	assert.Equal(t, 25.0, camera.pan)
	assert.Equal(t, 80.0, camera.zoom)
}

func TestAbsoluteMoveRejected(t *testing.T) {
	camera := &fakeCamera{}
	r, _ := setupRouter(camera)

	assert.Equal(t, http.StatusConflict, serve(r, http.MethodPost, "/ptz/absolute", `{"pan": 25}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/ptz/absolute", `{"pan": "left"}`).Code)
	assert.Empty(t, camera.calls)
}

func TestGotoPresetRoute(t *testing.T) {
	camera := &fakeCamera{}
	r, _ := setupRouter(camera)

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/ptz/preset/3", "").Code)
	assert.Equal(t, 3, camera.index)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/ptz/preset/-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/ptz/preset/home", "").Code)
	assert.Equal(t, []string{"preset"}, camera.calls)
}

func TestOperationRoute(t *testing.T) {
	camera := &fakeCamera{}
	r, _ := setupRouter(camera)

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/ptz/op/continuousmoveleft", "").Code)
	assert.Equal(t, onvif.OpContinuousMoveLeft, camera.op)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/ptz/op/Reboot", "").Code)
	assert.Equal(t, []string{"op"}, camera.calls)
}

func TestRefreshAndProfile(t *testing.T) {
	camera := &fakeCamera{}
	r, _ := setupRouter(camera)

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/ptz/refresh", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/profile/2", "").Code)
	assert.Equal(t, 2, camera.index)
	assert.Equal(t, []string{"getstatus", "profile"}, camera.calls)
}

func TestCameraStateKeepsConfiguredURIs(t *testing.T) {
	state := NewCameraState(zerolog.Nop(), "/snap.jpg", "")
	assert.Equal(t, "/snap.jpg", state.SnapshotURI())
	assert.Empty(t, state.StreamURI())

	state.SetStreamURI("rtsp://10.0.0.5/live")
	state.AudioDetected()
	state.ChangeAlarmState(onvif.TamperAlarm, true)
	state.NoMotionDetected(onvif.MotionAlarm)
	state.PTZPositionChanged(10, 20, 30)

	snap := state.Snapshot()
	assert.Equal(t, "rtsp://10.0.0.5/live", snap.StreamURI)
	assert.True(t, snap.Audio.On)
	assert.True(t, snap.Alarms[onvif.TamperAlarm].On)
	assert.False(t, snap.Alarms[onvif.MotionAlarm].On)
	assert.Equal(t, [3]float64{10, 20, 30}, [3]float64{snap.Pan, snap.Tilt, snap.Zoom})
}
