package onvif

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// parseReply parses a camera reply with etree, accepting non UTF-8 charsets.
// It returns nil when the reply is not well formed.
func parseReply(msg string) *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromString(msg); err != nil {
		return nil
	}
	return doc
}

// parseCapabilitiesLocked updates the service paths. Only non-empty values
// override the defaults. A missing PTZ address means the camera has no PTZ.
func (s *Session) parseCapabilitiesLocked(msg string) {
	// Foscam needs the key without the closing bracket of the opening tag
	if p := StripHost(ExtractField(msg, "<tt:Device", "tt:XAddr>")); p != "" {
		s.paths.Device = p
	}
	if p := StripHost(ExtractField(msg, "<tt:Events", "tt:XAddr>")); p != "" {
		s.paths.Events = p
		s.paths.Subscription = p
	}
	if p := StripHost(ExtractField(msg, "<tt:Media", "tt:XAddr>")); p != "" {
		s.paths.Media = p
	}

	if p := StripHost(ExtractField(msg, "<tt:PTZ", "tt:XAddr>")); p != "" {
		s.paths.PTZ = p
		s.ptzSupported = true
	} else {
		s.ptzSupported = false
		s.ptzState = PTZUnsupported
		s.log.Trace().Msg("camera gave no <tt:PTZ><tt:XAddr>, assuming no PTZ")
	}

	s.log.Debug().
		Str("device", s.paths.Device).
		Str("events", s.paths.Events).
		Str("media", s.paths.Media).
		Str("ptz", s.paths.PTZ).
		Bool("ptzSupported", s.ptzSupported).
		Msg("service paths")
}

// parseDateAndTimeLocked records how far the camera clock is from ours
func (s *Session) parseDateAndTimeLocked(msg string) {
	camera, ok := parseCameraUTC(msg)
	if !ok {
		s.log.Debug().Msg("could not read camera UTC date and time")
		return
	}
	now := s.builder.now().UTC()
	s.clockSkew = camera.Sub(now).Truncate(time.Second)
	s.log.Debug().
		Time("camera", camera).
		Time("local", now).
		Dur("skew", s.clockSkew).
		Msg("camera UTC date and time")
}

// parseCameraUTC reads the UTCDateTime block of a GetSystemDateAndTime reply.
// Structured parsing is tried first, then substring extraction.
func parseCameraUTC(msg string) (time.Time, bool) {
	fields := map[string]string{}
	names := []string{"Year", "Month", "Day", "Hour", "Minute", "Second"}

	if doc := parseReply(msg); doc != nil {
		if utc := doc.FindElement("//UTCDateTime"); utc != nil {
			for _, name := range names {
				if e := utc.FindElement(".//" + name); e != nil {
					fields[name] = strings.TrimSpace(e.Text())
				}
			}
		}
	}
	if len(fields) != len(names) {
		for _, name := range names {
			fields[name] = ExtractField(msg, "UTCDateTime", name+">")
		}
	}

	v := make([]int, len(names))
	for i, name := range names {
		n, err := strconv.Atoi(strings.TrimSpace(fields[name]))
		if err != nil {
			return time.Time{}, false
		}
		v[i] = n
	}
	return time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC), true
}

// parseDeviceInformationLocked fills the device details, structured first
func (s *Session) parseDeviceInformationLocked(msg string) {
	var info DeviceInfo
	fields := []struct {
		name string
		dst  *string
	}{
		{"Manufacturer", &info.Manufacturer},
		{"Model", &info.Model},
		{"FirmwareVersion", &info.FirmwareVersion},
		{"SerialNumber", &info.SerialNumber},
		{"HardwareId", &info.HardwareId},
	}

	if doc := parseReply(msg); doc != nil {
		if resp := doc.FindElement("//GetDeviceInformationResponse"); resp != nil {
			for _, f := range fields {
				if e := resp.FindElement(f.name); e != nil {
					*f.dst = strings.TrimSpace(e.Text())
				}
			}
		}
	}

	// Try manual extraction if structured parsing failed
	if info == (DeviceInfo{}) {
		for _, f := range fields {
			*f.dst = strings.TrimSpace(extractBetweenTags(msg, f.name))
		}
	}

	if info == (DeviceInfo{}) {
		s.log.Debug().Msg("device information reply carried no fields")
		return
	}
	s.device = info
	s.log.Debug().
		Str("manufacturer", info.Manufacturer).
		Str("model", info.Model).
		Str("firmware", info.FirmwareVersion).
		Msg("device information")
}
