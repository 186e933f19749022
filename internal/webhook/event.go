package webhook

import (
	"fmt"
	"net/url"
)

// Kind identifies one of the fixed delivery-lifecycle events Mailgun reports.
type Kind string

const (
	KindDelivered     Kind = "delivered"
	KindDropped       Kind = "dropped"
	KindBounced       Kind = "bounced"
	KindSpamComplaint Kind = "spam-complaint"
	KindUnsubscribe   Kind = "unsubscribe"
	KindClick         Kind = "click"
	KindOpen          Kind = "open"
)

// Event is a decoded, validated callback payload. It lives for one request.
type Event struct {
	Kind       Kind
	MessageID  string
	MailgunSID string
	Domain     string
	Event      string
	Recipient  string
	Timestamp  string
	Signature  string
	Token      string

	// dropped
	Reason      string
	Code        string
	Description string

	// bounced
	Error string

	// click / open
	IP         string
	DeviceType string
	ClientType string
}

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// schema declares what each kind expects beyond the base set.
type schema struct {
	defaultDomain string
	defaultEvent  string
	dropFields    bool // reason, code, description
	bounceFields  bool // code, error
	clientFields  bool // ip, device-type, client-type
}

var schemas = map[Kind]schema{
	KindDelivered:     {defaultDomain: "email.com", defaultEvent: "delivered"},
	KindDropped:       {defaultDomain: "email.com", defaultEvent: "dropped", dropFields: true},
	KindBounced:       {defaultDomain: "email.com", defaultEvent: "bounce", bounceFields: true},
	KindSpamComplaint: {defaultDomain: "email.com", defaultEvent: "spam-complaint"},
	KindUnsubscribe:   {defaultDomain: "email.com", defaultEvent: "unsubscribe"},
	KindClick:         {defaultEvent: "click", clientFields: true},
	KindOpen:          {defaultEvent: "open", clientFields: true},
}

// required for every kind; checked before any field touches the verifier so a
// missing value fails as a 400, not a crash.
var requiredFields = []string{"recipient", "token", "timestamp", "signature"}

// Decode extracts the field set for kind from a parsed form payload. It never
// touches persisted state.
func Decode(kind Kind, form url.Values) (*Event, error) {
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}

	for _, field := range requiredFields {
		if form.Get(field) == "" {
			return nil, &MissingFieldError{Field: field}
		}
	}

	ev := &Event{
		Kind:       kind,
		MessageID:  form.Get("Message-Id"),
		MailgunSID: form.Get("X-Mailgun-Sid"),
		Domain:     valueOr(form, "domain", s.defaultDomain),
		Event:      valueOr(form, "event", s.defaultEvent),
		Recipient:  form.Get("recipient"),
		Timestamp:  form.Get("timestamp"),
		Signature:  form.Get("signature"),
		Token:      form.Get("token"),
	}

	if s.dropFields {
		ev.Reason = form.Get("reason")
		ev.Code = form.Get("code")
		ev.Description = form.Get("description")
	}

	if s.bounceFields {
		ev.Code = form.Get("code")
		ev.Error = form.Get("error")
	}

	if s.clientFields {
		ev.IP = form.Get("ip")
		ev.DeviceType = form.Get("device-type")
		ev.ClientType = form.Get("client-type")
	}

	return ev, nil
}

func valueOr(form url.Values, key, fallback string) string {
	if v := form.Get(key); v != "" {
		return v
	}
	return fallback
}
