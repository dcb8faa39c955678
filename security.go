package onvif

import (
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/elgs/gostrgen"
	"github.com/juju/errors"
)

const (
	nsWSSE = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	nsWSU  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"

	passwordDigestType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordDigest"
	base64EncodingType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	// Created timestamps carry milliseconds and a literal Z
	timestampLayout = "2006-01-02T15:04:05.000Z"

	// enough digits to cover the uint32 range
	nonceDigits = 10
)

// UsernameToken is one WS-Security UsernameToken digest
type UsernameToken struct {
	Username string
	Nonce    string // raw decimal nonce, sent base64 encoded
	Created  string
	Digest   string
}

// Digest computes base64(SHA-1(nonce + created + password)). The concatenation order
// is fixed by the UsernameToken profile.
func Digest(nonce, created, password string) string {
	h := sha1.New()
	h.Write([]byte(nonce))
	h.Write([]byte(created))
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// generateNonce returns the decimal form of a random 32-bit integer. It guards against
// replay, not disclosure.
func generateNonce() (string, error) {
	digits, err := gostrgen.RandGen(nonceDigits, gostrgen.Digit, "", "")
	if err != nil {
		return "", errors.Annotate(err, "generating nonce")
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return "", errors.Annotatef(err, "parsing nonce %q", digits)
	}
	return strconv.FormatUint(n%(1<<32), 10), nil
}

// NewUsernameToken builds a token for the given nonce and instant
func NewUsernameToken(username, password, nonce string, now time.Time) UsernameToken {
	created := now.UTC().Format(timestampLayout)
	return UsernameToken{
		Username: username,
		Nonce:    nonce,
		Created:  created,
		Digest:   Digest(nonce, created, password),
	}
}

// Element renders the token as a wsse Security header block
func (t UsernameToken) Element() *etree.Element {
	sec := etree.NewElement("Security")
	sec.CreateAttr("s:mustUnderstand", "1")
	sec.CreateAttr("xmlns", nsWSSE)

	token := sec.CreateElement("UsernameToken")
	token.CreateElement("Username").SetText(t.Username)

	password := token.CreateElement("Password")
	password.CreateAttr("Type", passwordDigestType)
	password.SetText(t.Digest)

	nonce := token.CreateElement("Nonce")
	nonce.CreateAttr("EncodingType", base64EncodingType)
	nonce.SetText(base64.StdEncoding.EncodeToString([]byte(t.Nonce)))

	created := token.CreateElement("Created")
	created.CreateAttr("xmlns", nsWSU)
	created.SetText(t.Created)

	return sec
}
