// Package outbound normalizes what the gateway hands to a channel
// adapter on message.outbound: a transport-agnostic envelope rather
// than a raw assistant Message, so an adapter never needs to know
// about sessions, models, or the Agent Loop.
package outbound

import "time"

// Payload is one unit of outbound content. MediaURL is empty for
// plain-text deliveries; the gateway itself never populates it today
// (no tool produces media), but the shape accommodates an adapter
// that attaches one later.
type Payload struct {
	Text     string `json:"text"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// Delivery carries the routing information a channel adapter needs
// to place the payloads in front of the right recipient.
type Delivery struct {
	Channel   string    `json:"channel"`
	Via       string    `json:"via"`
	To        string    `json:"to"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is the complete normalized outbound delivery.
type Envelope struct {
	Payloads []Payload         `json:"payloads"`
	Delivery Delivery          `json:"delivery"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Build constructs the Envelope for one outbound text delivery.
// messageID identifies the outbound message itself (not the prior
// inbound turn that triggered it); via names the subsystem that
// produced the reply (e.g. "agent", "cron").
func Build(sessionID, channel, to, via, messageID, text string, now time.Time) Envelope {
	return Envelope{
		Payloads: []Payload{{Text: text}},
		Delivery: Delivery{
			Channel:   channel,
			Via:       via,
			To:        to,
			MessageID: messageID,
			Timestamp: now,
		},
		Meta: map[string]string{"sessionId": sessionID},
	}
}
