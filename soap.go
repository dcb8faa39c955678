package onvif

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/gofrs/uuid"
	"github.com/juju/errors"
)

const (
	nsSOAP       = "http://www.w3.org/2003/05/soap-envelope"
	nsAddressing = "http://www.w3.org/2005/08/addressing"
	nsXSI        = "http://www.w3.org/2001/XMLSchema-instance"
	nsXSD        = "http://www.w3.org/2001/XMLSchema"
)

// Request is a fully built SOAP request ready for a Transport
type Request struct {
	Operation Operation
	// URL is the absolute endpoint, built from the configured address and a service path
	URL string
	// Host is the Host header value. The port only appears when it is not 80.
	Host   string
	Action string
	Body   string
}

// ContentType returns the SOAP 1.2 content type carrying the action
func (r *Request) ContentType() string {
	return fmt.Sprintf(`application/soap+xml; charset=utf-8; action="%s"`, r.Action)
}

// envelopeBuilder wraps operation bodies in a SOAP envelope for one camera
type envelopeBuilder struct {
	host     string
	port     int
	username string
	password string

	now       func() time.Time
	nonce     func() (string, error)
	messageID func() (string, error)
}

func newEnvelopeBuilder(host string, port int, username, password string) *envelopeBuilder {
	return &envelopeBuilder{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		now:       time.Now,
		nonce:     generateNonce,
		messageID: newMessageID,
	}
}

func newMessageID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Annotate(err, "generating message id")
	}
	return "urn:uuid:" + id.String(), nil
}

func (b *envelopeBuilder) hostHeader() string {
	if b.port == DefaultPort {
		return b.host
	}
	return b.host + ":" + strconv.Itoa(b.port)
}

// Build renders op with the given body for the service at path
func (b *envelopeBuilder) Build(op Operation, path, body string) (*Request, error) {
	opDoc := etree.NewDocument()
	if err := opDoc.ReadFromString(body); err != nil {
		return nil, errors.Annotatef(err, "parsing %s body", op)
	}
	root := opDoc.Root()
	if root == nil {
		return nil, errors.Errorf("%s body has no root element", op)
	}
	ns := root.SelectAttrValue("xmlns", "")
	if ns == "" {
		return nil, errors.Errorf("%s body has no namespace", op)
	}
	action := ns + "/" + root.Tag

	host := b.hostHeader()
	address := "http://" + host + path

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("s:Envelope")
	env.CreateAttr("xmlns:s", nsSOAP)
	if op.addressed() {
		env.CreateAttr("xmlns:a", nsAddressing)
	}

	header := etree.NewElement("s:Header")
	if b.password != "" && op.authenticated() {
		nonce, err := b.nonce()
		if err != nil {
			return nil, errors.Trace(err)
		}
		header.AddChild(NewUsernameToken(b.username, b.password, nonce, b.now()).Element())
	}
	if op.addressed() {
		to := header.CreateElement("a:To")
		to.CreateAttr("s:mustUnderstand", "1")
		to.SetText(address)

		id, err := b.messageID()
		if err != nil {
			return nil, errors.Trace(err)
		}
		header.CreateElement("a:MessageID").SetText(id)
	}
	if len(header.ChildElements()) > 0 {
		env.AddChild(header)
	}

	sb := env.CreateElement("s:Body")
	sb.CreateAttr("xmlns:xsi", nsXSI)
	sb.CreateAttr("xmlns:xsd", nsXSD)
	sb.AddChild(root)

	out, err := doc.WriteToString()
	if err != nil {
		return nil, errors.Annotatef(err, "writing %s envelope", op)
	}

	return &Request{
		Operation: op,
		URL:       address,
		Host:      host,
		Action:    action,
		Body:      out,
	}, nil
}
