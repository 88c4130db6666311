package notification

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Kind classifies a notification envelope by its declared type/topic.
type Kind string

const (
	KindPayment       Kind = "payment"
	KindMerchantOrder Kind = "merchant_order"
	KindUnknown       Kind = "unknown"
)

// flexID tolerates ids arriving as JSON numbers or strings; MercadoPago
// sends both depending on the notification style.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	*f = flexID(s)
	return nil
}

// Notification is the parsed envelope. All fields are optional on the
// wire; absent keys stay zero-valued and the extraction rules simply
// fall through.
type Notification struct {
	ID          string
	Topic       string
	Type        string
	Action      string
	DateCreated string
	Resource    string
	DataID      string
	Raw         json.RawMessage
}

type envelope struct {
	ID          flexID `json:"id"`
	Topic       string `json:"topic"`
	Type        string `json:"type"`
	Action      string `json:"action"`
	DateCreated string `json:"date_created"`
	Resource    string `json:"resource"`
	Data        struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

// Parse decodes a notification body. The verbatim body is retained in Raw
// for audit storage.
func Parse(body []byte) (*Notification, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &Notification{
		ID:          string(env.ID),
		Topic:       env.Topic,
		Type:        env.Type,
		Action:      env.Action,
		DateCreated: env.DateCreated,
		Resource:    env.Resource,
		DataID:      string(env.Data.ID),
		Raw:         json.RawMessage(body),
	}, nil
}

// Kind prefers the envelope's type field and falls back to topic.
func (n *Notification) Kind() Kind {
	switch n.Type {
	case "payment":
		return KindPayment
	case "merchant_order":
		return KindMerchantOrder
	}
	switch n.Topic {
	case "payment":
		return KindPayment
	case "merchant_order":
		return KindMerchantOrder
	}
	return KindUnknown
}

// PaymentID extracts the payment identifier candidate, body first, then
// query parameters. First match wins:
//
//  1. topic == "payment" with a top-level id
//  2. type == "payment" with a nested data.id
//  3. topic == "payment" with a resource value, taken raw
//  4. the same three checks against query parameters (dotted "data.id")
//
// Returns "" when no rule matches.
func (n *Notification) PaymentID(query url.Values) string {
	if n.Topic == "payment" && n.ID != "" {
		return n.ID
	}
	if n.Type == "payment" && n.DataID != "" {
		return n.DataID
	}
	if n.Topic == "payment" && n.Resource != "" {
		return n.Resource
	}
	if query != nil {
		if query.Get("topic") == "payment" && query.Get("id") != "" {
			return query.Get("id")
		}
		if query.Get("type") == "payment" && query.Get("data.id") != "" {
			return query.Get("data.id")
		}
		if query.Get("topic") == "payment" && query.Get("resource") != "" {
			return query.Get("resource")
		}
	}
	return ""
}

// OrderID extracts the order identifier: data.id when present, otherwise
// the last path segment of the resource URL, minus any query string.
// Independent of PaymentID; both may be non-empty for one notification.
func (n *Notification) OrderID() string {
	if n.DataID != "" {
		return n.DataID
	}
	if n.Resource != "" {
		parts := strings.Split(n.Resource, "/")
		seg := parts[len(parts)-1]
		if i := strings.IndexByte(seg, '?'); i >= 0 {
			seg = seg[:i]
		}
		return seg
	}
	return ""
}
