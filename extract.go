package onvif

import (
	"strings"

	"github.com/juju/errors"
)

// ExtractField finds the first containingTag, then the first key after it, and returns the
// text that follows key up to the next '"' or '<'. An empty containingTag anchors at the
// start of xml. Missing anchors and unterminated values yield "".
func ExtractField(xml, containingTag, key string) string {
	start := strings.Index(xml, containingTag)
	if start == -1 {
		return ""
	}
	rest := xml[start+len(containingTag):]
	idx := strings.Index(rest, key)
	if idx == -1 {
		return ""
	}
	value := rest[idx+len(key):]
	end := strings.IndexAny(value, "\"<")
	if end == -1 {
		return ""
	}
	return value[:end]
}

// ExtractList collects one key per repeated containingTag block, in document order. A block
// runs until the next containingTag. The scan stops at the first block without the key.
func ExtractList(xml, containingTag, key string) []string {
	var results []string
	if containingTag == "" {
		return results
	}
	remaining := xml
	for {
		start := strings.Index(remaining, containingTag)
		if start == -1 {
			return results
		}
		block := remaining[start:]
		next := strings.Index(block[len(containingTag):], containingTag)
		if next != -1 {
			block = block[:len(containingTag)+next]
		}
		value := ExtractField(block, containingTag, key)
		if value == "" {
			return results
		}
		results = append(results, value)
		remaining = remaining[start+len(containingTag):]
	}
}

// StripHost drops scheme, host and port from a URL and returns the path onwards.
// Cameras often report a host that differs from the address we reach them on.
func StripHost(url string) string {
	from := 0
	if idx := strings.Index(url, "//"); idx != -1 {
		from = idx + 2
	}
	idx := strings.Index(url[from:], "/")
	if idx == -1 {
		return ""
	}
	return url[from+idx:]
}

// escapeXML escapes special XML characters in a string
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// containsSOAPFault checks if the response contains a SOAP fault element
// with any namespace prefix (e.g. s:Fault, SOAP-ENV:Fault, env:Fault, soap:Fault)
func containsSOAPFault(resp string) bool {
	if strings.Contains(resp, ":Fault>") || strings.Contains(resp, ":Fault ") {
		return true
	}
	if strings.Contains(resp, "<Fault>") || strings.Contains(resp, "<Fault ") {
		return true
	}
	return false
}

// parseSOAPFault checks for SOAP faults and returns a descriptive error
func parseSOAPFault(resp []byte) error {
	respStr := string(resp)

	if !containsSOAPFault(respStr) {
		return nil
	}

	if strings.Contains(respStr, "NotAuthorized") {
		return errors.Unauthorizedf("camera rejected credentials")
	}
	if strings.Contains(respStr, "ter:ActionNotSupported") {
		return errors.NotSupportedf("operation")
	}
	if strings.Contains(respStr, "ter:NoProfile") || strings.Contains(respStr, "ter:NoToken") {
		return errors.NotFoundf("token referenced by request")
	}

	// SOAP 1.2 Reason > Text
	if reason := extractBetweenTags(respStr, "Reason"); reason != "" {
		if text := extractTextElement(reason); text != "" {
			return errors.Errorf("SOAP fault: %s", text)
		}
	}

	// SOAP 1.1 faultstring
	if text := extractBetweenTags(respStr, "faultstring"); text != "" {
		return errors.Errorf("SOAP fault: %s", text)
	}

	return errors.New("SOAP fault in response")
}

// extractBetweenTags finds content between opening and closing tags with any namespace prefix
func extractBetweenTags(s, localName string) string {
	openIdx := -1
	for _, pattern := range []string{"<" + localName + ">", "<" + localName + " "} {
		if idx := strings.Index(s, pattern); idx != -1 {
			openIdx = idx
			break
		}
	}

	if openIdx == -1 {
		marker := ":" + localName + ">"
		if idx := strings.Index(s, marker); idx != -1 {
			// walk back to the '<'
			for i := idx - 1; i >= 0 && i > idx-20; i-- {
				if s[i] == '<' {
					openIdx = i
					break
				}
			}
		}
	}

	if openIdx == -1 {
		return ""
	}

	contentStart := strings.Index(s[openIdx:], ">")
	if contentStart == -1 {
		return ""
	}
	contentStart += openIdx + 1

	closeIdx := strings.Index(s[contentStart:], ":"+localName+">")
	if closeIdx != -1 {
		// back up over "</prefix"
		if lt := strings.LastIndex(s[contentStart:contentStart+closeIdx], "</"); lt != -1 {
			closeIdx = lt
		}
	} else {
		closeIdx = strings.Index(s[contentStart:], "</"+localName+">")
	}
	if closeIdx == -1 {
		return ""
	}

	return s[contentStart : contentStart+closeIdx]
}

// extractTextElement extracts text content from a Text element (SOAP 1.2 fault reason)
func extractTextElement(s string) string {
	textStart := -1
	for _, marker := range []string{":Text ", ":Text>", "<Text ", "<Text>"} {
		if idx := strings.Index(s, marker); idx != -1 {
			textStart = idx
			break
		}
	}
	if textStart == -1 {
		return ""
	}

	contentStart := strings.Index(s[textStart:], ">")
	if contentStart == -1 {
		return ""
	}
	contentStart += textStart + 1

	if idx := strings.Index(s[contentStart:], "</"); idx != -1 {
		return s[contentStart : contentStart+idx]
	}
	return ""
}
