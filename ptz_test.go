package onvif

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisRoundTrip(t *testing.T) {
	axes := []Axis{
		DefaultPanRange,
		DefaultZoomRange,
		{Min: -180, Max: 180},
		{Min: 0, Max: 9999},
		{Min: 1, Max: -1},
		{Min: -0.25, Max: 0.75},
	}
	for _, a := range axes {
		for p := 0.0; p <= 100; p += 12.5 {
			t.Run(fmt.Sprintf("%v/%v", a, p), func(t *testing.T) {
				native := a.ToNative(p)
				assert.InDelta(t, p, a.ToPercent(native), 1e-9)
				assert.InDelta(t, native, a.ToNative(a.ToPercent(native)), 1e-9)
			})
		}
	}
}

func TestAxisEndpoints(t *testing.T) {
	a := Axis{Min: -1, Max: 1}
	assert.InDelta(t, -1, a.ToNative(0), 1e-12)
	assert.InDelta(t, 0, a.ToNative(50), 1e-12)
	assert.InDelta(t, 1, a.ToNative(100), 1e-12)
	assert.InDelta(t, 75, a.ToPercent(0.5), 1e-12)
}

func TestAxisNotClamped(t *testing.T) {
	a := Axis{Min: 0, Max: 1}
	assert.InDelta(t, 1.5, a.ToNative(150), 1e-12)
	assert.InDelta(t, -50, a.ToPercent(-0.5), 1e-12)
}

func TestTiltForwardUsesPanScale(t *testing.T) {
	s := newTestSession(t, nil)
	s.panRange = Axis{Min: -2, Max: 2}
	s.tiltRange = Axis{Min: -1, Max: 1}

	s.SetAbsoluteTilt(50)
	// pan scale (4) from the tilt minimum
	assert.InDelta(t, 1, s.tilt.native, 1e-12)
	assert.Equal(t, 50.0, s.AbsoluteTilt())

	s.opts.TiltUsesPanRange = false
	s.SetAbsoluteTilt(50)
	assert.InDelta(t, 0, s.tilt.native, 1e-12)
}

func TestSetAbsoluteKeepsNativeInStep(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetAbsolutePan(25)
	s.SetAbsoluteZoom(40)

	assert.Equal(t, 25.0, s.AbsolutePan())
	assert.InDelta(t, -0.5, s.pan.native, 1e-12)
	assert.Equal(t, 40.0, s.AbsoluteZoom())
	assert.InDelta(t, 0.4, s.zoom.native, 1e-12)
}

func TestSetAbsoluteIgnoredWithoutPTZ(t *testing.T) {
	s := newTestSession(t, nil)
	s.ptzSupported = false
	before := s.AbsolutePan()
	s.SetAbsolutePan(90)
	assert.Equal(t, before, s.AbsolutePan())
}

const statusReply = `<tptz:GetStatusResponse><tptz:PTZStatus><tt:Position>` +
	`<tt:PanTilt x="0.5" y="-0.5" space="http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace"/>` +
	`<tt:Zoom x="0.25" space="http://www.onvif.org/ver10/tptz/ZoomSpaces/PositionGenericSpace"/>` +
	`</tt:Position><tt:MoveStatus><tt:PanTilt>IDLE</tt:PanTilt><tt:Zoom>IDLE</tt:Zoom></tt:MoveStatus>` +
	`</tptz:PTZStatus></tptz:GetStatusResponse>`

func TestParsePTZStatus(t *testing.T) {
	s := newTestSession(t, nil)
	require.True(t, s.parsePTZStatusLocked(statusReply))

	assert.InDelta(t, 75, s.pan.percent, 1e-9)
	assert.InDelta(t, 25, s.tilt.percent, 1e-9)
	assert.InDelta(t, 25, s.zoom.percent, 1e-9)
	assert.InDelta(t, 0.5, s.pan.native, 1e-12)
}

func TestParsePTZStatusUnreadable(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetAbsolutePan(10)
	assert.False(t, s.parsePTZStatusLocked(`<tptz:GetStatusResponse></tptz:GetStatusResponse>`))
	assert.Equal(t, 10.0, s.AbsolutePan())
}

func TestParseConfigurationOptions(t *testing.T) {
	reply := `<tptz:GetConfigurationOptionsResponse><tptz:PTZConfigurationOptions><tt:Spaces>` +
		`<tt:AbsolutePanTiltPositionSpace><tt:URI>x</tt:URI>` +
		`<tt:XRange><tt:Min>-180</tt:Min><tt:Max>180</tt:Max></tt:XRange>` +
		`<tt:YRange><tt:Min>-90</tt:Min><tt:Max>90</tt:Max></tt:YRange>` +
		`</tt:AbsolutePanTiltPositionSpace>` +
		`<tt:AbsoluteZoomPositionSpace><tt:URI>z</tt:URI>` +
		`<tt:XRange><tt:Min>0</tt:Min><tt:Max>4</tt:Max></tt:XRange>` +
		`</tt:AbsoluteZoomPositionSpace>` +
		`</tt:Spaces></tptz:PTZConfigurationOptions></tptz:GetConfigurationOptionsResponse>`

	s := newTestSession(t, nil)
	s.parseConfigurationOptionsLocked(reply)

	assert.Equal(t, Axis{Min: -180, Max: 180}, s.panRange)
	assert.Equal(t, Axis{Min: -90, Max: 90}, s.tiltRange)
	assert.Equal(t, Axis{Min: 0, Max: 4}, s.zoomRange)
	// native 0 is the middle of a symmetric range
	assert.InDelta(t, 50, s.pan.percent, 1e-9)
}

func TestParseConfigurationOptionsKeepsDefaults(t *testing.T) {
	s := newTestSession(t, nil)
	s.parseConfigurationOptionsLocked(`<tptz:GetConfigurationOptionsResponse>` +
		`<tt:AbsolutePanTiltPositionSpace><tt:XRange><tt:Min>abc</tt:Min><tt:Max>1</tt:Max></tt:XRange>` +
		`</tt:AbsolutePanTiltPositionSpace></tptz:GetConfigurationOptionsResponse>`)

	assert.Equal(t, DefaultPanRange, s.panRange)
	assert.Equal(t, DefaultTiltRange, s.tiltRange)
	assert.Equal(t, DefaultZoomRange, s.zoomRange)
}

const presetsReply = `<tptz:GetPresetsResponse>` +
	`<tptz:Preset token="tokA"><tt:Name>Door</tt:Name></tptz:Preset>` +
	`<tptz:Preset token="tokB"><tt:Name>Yard</tt:Name></tptz:Preset>` +
	`</tptz:GetPresetsResponse>`

func TestParsePresets(t *testing.T) {
	s := newTestSession(t, nil)
	require.True(t, s.parsePresetsLocked(presetsReply))

	assert.Equal(t, []Preset{
		{Index: 1, Token: "tokA", Name: "Door"},
		{Index: 2, Token: "tokB", Name: "Yard"},
	}, s.presets.list())
}

func TestParsePresetsRejectsMismatch(t *testing.T) {
	s := newTestSession(t, nil)
	require.True(t, s.parsePresetsLocked(presetsReply))

	mismatched := `<tptz:GetPresetsResponse>` +
		`<tptz:Preset token="x1"><tt:Name>One</tt:Name></tptz:Preset>` +
		`<tptz:Preset token="x2"></tptz:Preset>` +
		`</tptz:GetPresetsResponse>`
	assert.False(t, s.parsePresetsLocked(mismatched))
	assert.Equal(t, []string{"tokA", "tokB"}, s.presets.tokens)
	assert.Equal(t, []string{"Door", "Yard"}, s.presets.names)
}
