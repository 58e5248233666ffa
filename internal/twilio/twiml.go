package twilio

import (
	"encoding/xml"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// EmptyTwiML is the acknowledgement document Twilio expects on the normal
// path. The reply to the customer, when there is one, is delivered out of
// band by the AI backend or the workflow engine, never in this response.
func EmptyTwiML() string {
	return xmlHeader + `<Response></Response>`
}

// MessageTwiML embeds a synchronous reply in the acknowledgement. Unused on
// the normal path but kept well-formed for any future flow that answers
// inline: free text is XML-escaped before embedding.
func MessageTwiML(text string) string {
	var escaped strings.Builder
	xml.EscapeText(&escaped, []byte(text))
	return xmlHeader + `<Response><Message>` + escaped.String() + `</Message></Response>`
}
