package onvif

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// parseProfilesLocked replaces the media profile registry
func (s *Session) parseProfilesLocked(msg string) {
	s.profiles = ExtractList(msg, "<trt:Profiles", `token="`)
	s.log.Debug().Strs("profiles", s.profiles).Msg("media profiles")
	s.checkProfileIndexLocked()
}

// checkProfileIndexLocked falls back to the first profile when the selected
// index is past the end of the registry
func (s *Session) checkProfileIndexLocked() {
	if len(s.profiles) == 0 {
		return
	}
	if s.profileIndex < 0 || s.profileIndex >= len(s.profiles) {
		s.log.Warn().
			Int("selected", s.profileIndex).
			Int("reported", len(s.profiles)).
			Msg("media profile index out of range, falling back to profile 0")
		s.profileIndex = 0
	}
}

// mediaURI pulls the Uri out of a GetSnapshotUri or GetStreamUri reply
func mediaURI(msg string) string {
	uri := ExtractField(msg, ":MediaUri", ":Uri>")
	if uri == "" {
		// cameras that drop the namespace prefix
		uri = extractBetweenTags(msg, "Uri")
	}
	return strings.ReplaceAll(uri, "&amp;", "&")
}

func (s *Session) snapshotReceivedLocked(msg string, st *step) {
	uri := StripHost(mediaURI(msg))
	if uri == "" {
		s.log.Debug().Msg("could not read snapshot URI")
		return
	}
	s.snapshotURI = uri
	s.log.Debug().Str("uri", uri).Msg("snapshot URI")
	st.notify(func() {
		if s.consumer.SnapshotURI() == "" {
			s.consumer.SetSnapshotURI(uri)
		}
	})
}

func (s *Session) streamReceivedLocked(msg string, st *step) {
	raw := mediaURI(msg)
	if raw == "" {
		s.log.Debug().Msg("could not read stream URI")
		return
	}
	uri := rewriteStreamHost(raw, s.builder.host)
	s.streamURI = uri
	s.log.Debug().Str("uri", uri).Msg("stream URI")
	st.notify(func() {
		if s.consumer.StreamURI() == "" {
			s.consumer.SetStreamURI(uri)
		}
	})
}

// rewriteStreamHost swaps the host the camera reported for the one we reach it on.
// Scheme, port, path and query are kept. Unparsable URIs are returned unchanged.
func rewriteStreamHost(raw, host string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if port := u.Port(); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			u.Host = net.JoinHostPort(host, port)
			return u.String()
		}
	}
	u.Host = host
	return u.String()
}
