package onvif

import (
	"strconv"
	"strings"
)

// Axis is the native range a camera uses for one PTZ axis
type Axis struct {
	Min float64
	Max float64
}

// Default native ranges, used until the camera reports its own
var (
	DefaultPanRange  = Axis{Min: -1, Max: 1}
	DefaultTiltRange = Axis{Min: -1, Max: 1}
	DefaultZoomRange = Axis{Min: 0, Max: 1}
)

// ToNative maps a 0-100 percentage onto the axis. Values are not clamped.
func (a Axis) ToNative(percent float64) float64 {
	return ((a.Min-a.Max)*-1/100)*percent + a.Min
}

// ToPercent maps a native value back to a percentage. It is the inverse of ToNative.
func (a Axis) ToPercent(native float64) float64 {
	return ((a.Min - native) * -1) / ((a.Min - a.Max) * -1) * 100
}

// axisPosition keeps a native value and its percentage in step
type axisPosition struct {
	native  float64
	percent float64
}

func (p *axisPosition) setPercent(a Axis, percent float64) {
	p.percent = percent
	p.native = a.ToNative(percent)
}

func (p *axisPosition) setNative(a Axis, native float64) {
	p.native = native
	p.percent = a.ToPercent(native)
}

// tiltForwardLocked is the axis used to turn tilt percentages into native values.
// With TiltUsesPanRange the scale comes from the pan range and the offset from tilt.
func (s *Session) tiltForwardLocked() Axis {
	if !s.opts.TiltUsesPanRange {
		return s.tiltRange
	}
	return Axis{Min: s.tiltRange.Min, Max: s.tiltRange.Min + (s.panRange.Max - s.panRange.Min)}
}

// SetAbsolutePan stores a pan target as a percentage of the camera range
func (s *Session) SetAbsolutePan(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptzSupported {
		s.pan.setPercent(s.panRange, percent)
	}
}

// SetAbsoluteTilt stores a tilt target as a percentage of the camera range
func (s *Session) SetAbsoluteTilt(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptzSupported {
		s.tilt.setPercent(s.tiltForwardLocked(), percent)
	}
}

// SetAbsoluteZoom stores a zoom target as a percentage of the camera range
func (s *Session) SetAbsoluteZoom(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptzSupported {
		s.zoom.setPercent(s.zoomRange, percent)
	}
}

// AbsolutePan returns the last known pan position as a percentage
func (s *Session) AbsolutePan() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pan.percent
}

// AbsoluteTilt returns the last known tilt position as a percentage
func (s *Session) AbsoluteTilt() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tilt.percent
}

// AbsoluteZoom returns the last known zoom position as a percentage
func (s *Session) AbsoluteZoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom.percent
}

// positionSection returns msg from the Position element on, so the MoveStatus
// PanTilt and Zoom elements that follow are not mistaken for coordinates
func positionSection(msg string) string {
	if idx := strings.Index(msg, "Position"); idx != -1 {
		return msg[idx:]
	}
	return msg
}

func parseCoordinate(msg, containingTag, key string) (float64, bool) {
	raw := ExtractField(msg, containingTag, key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parsePTZStatusLocked updates the position from a GetStatus reply. It reports
// false when not even the pan value could be read.
func (s *Session) parsePTZStatusLocked(msg string) bool {
	pos := positionSection(msg)

	pan, ok := parseCoordinate(pos, "PanTilt", `x="`)
	if !ok {
		s.log.Warn().Msg("could not read the camera PTZ position, not all cameras answer GetStatus")
		return false
	}
	s.pan.setNative(s.panRange, pan)

	if tilt, ok := parseCoordinate(pos, "PanTilt", `y="`); ok {
		s.tilt.setNative(s.tiltRange, tilt)
	}
	if zoom, ok := parseCoordinate(pos, "Zoom", `x="`); ok {
		s.zoom.setNative(s.zoomRange, zoom)
	}

	s.log.Debug().
		Float64("pan", s.pan.percent).
		Float64("tilt", s.tilt.percent).
		Float64("zoom", s.zoom.percent).
		Msg("PTZ position")
	return true
}

// parseRange reads the Min and Max of one range element inside section
func parseRange(section, rangeTag string) (Axis, bool) {
	lo, ok := parseCoordinate(section, rangeTag, "Min>")
	if !ok {
		return Axis{}, false
	}
	hi, ok := parseCoordinate(section, rangeTag, "Max>")
	if !ok || hi == lo {
		return Axis{}, false
	}
	return Axis{Min: lo, Max: hi}, true
}

// spaceSection returns msg from the named position space to the end of that element
func spaceSection(msg, space string) string {
	start := strings.Index(msg, space)
	if start == -1 {
		return ""
	}
	section := msg[start+len(space):]
	if end := strings.Index(section, space); end != -1 {
		section = section[:end]
	}
	return section
}

// parseConfigurationOptionsLocked reads the absolute position ranges. Values that
// cannot be read keep the current range.
func (s *Session) parseConfigurationOptionsLocked(msg string) {
	if section := spaceSection(msg, "AbsolutePanTiltPositionSpace"); section != "" {
		if a, ok := parseRange(section, "XRange"); ok {
			s.panRange = a
		}
		if a, ok := parseRange(section, "YRange"); ok {
			s.tiltRange = a
		}
	}
	if section := spaceSection(msg, "AbsoluteZoomPositionSpace"); section != "" {
		if a, ok := parseRange(section, "XRange"); ok {
			s.zoomRange = a
		}
	}

	s.pan.setNative(s.panRange, s.pan.native)
	s.tilt.setNative(s.tiltRange, s.tilt.native)
	s.zoom.setNative(s.zoomRange, s.zoom.native)

	s.log.Debug().
		Floats64("pan", []float64{s.panRange.Min, s.panRange.Max}).
		Floats64("tilt", []float64{s.tiltRange.Min, s.tiltRange.Max}).
		Floats64("zoom", []float64{s.zoomRange.Min, s.zoomRange.Max}).
		Msg("PTZ ranges")
}

// presetRegistry holds preset tokens and names. Index i of both lists is the same preset.
type presetRegistry struct {
	tokens []string
	names  []string
}

func (r presetRegistry) empty() bool {
	return len(r.tokens) == 0
}

// list numbers presets from 1, 0 being home
func (r presetRegistry) list() []Preset {
	presets := make([]Preset, 0, len(r.tokens))
	for i := range r.tokens {
		presets = append(presets, Preset{Index: i + 1, Token: r.tokens[i], Name: r.names[i]})
	}
	return presets
}

// parsePresetsLocked rebuilds the preset registry. A reply with differing token and
// name counts is rejected and the previous registry kept.
func (s *Session) parsePresetsLocked(msg string) bool {
	tokens := ExtractList(msg, "<tptz:Preset", `token="`)
	names := ExtractList(msg, "<tptz:Preset", "<tt:Name>")
	if len(tokens) != len(names) {
		s.log.Warn().
			Int("tokens", len(tokens)).
			Int("names", len(names)).
			Msg("camera did not report the same number of tokens and names for PTZ presets")
		return false
	}
	s.presets = presetRegistry{tokens: tokens, names: names}
	s.log.Debug().Strs("presets", names).Msg("PTZ presets")
	return true
}
