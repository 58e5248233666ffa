package twilio

import (
	"net/url"
	"strings"
)

// InboundMessage is the parsed form payload of an inbound WhatsApp webhook.
type InboundMessage struct {
	MessageSID string
	From       string
	To         string
	Body       string
}

// ParseInbound extracts the inbound message fields from the decoded form.
// Twilio sends the message identifier as SmsMessageSid, with MessageSid as
// an alias on newer API versions.
func ParseInbound(form url.Values) InboundMessage {
	sid := form.Get("SmsMessageSid")
	if sid == "" {
		sid = form.Get("MessageSid")
	}
	return InboundMessage{
		MessageSID: sid,
		From:       form.Get("From"),
		To:         form.Get("To"),
		Body:       form.Get("Body"),
	}
}

// CustomerPhone strips the whatsapp: channel prefix from the raw sender
// address.
func (m InboundMessage) CustomerPhone() string {
	return strings.TrimPrefix(m.From, "whatsapp:")
}
