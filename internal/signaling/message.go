// Package signaling defines the message protocol two peers exchange through
// the room relay while negotiating a WebRTC connection, and the transports
// that carry it.
package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DescriptionType is the canonical string form of an SDP description type.
type DescriptionType string

const (
	TypeOffer  DescriptionType = "offer"
	TypeAnswer DescriptionType = "answer"
)

// Description is the portable subset of a WebRTC session description.
type Description struct {
	Type DescriptionType `json:"type"`
	SDP  string          `json:"sdp"`
}

// Candidate is the portable subset of a WebRTC ICE candidate.
type Candidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex int    `json:"sdpMLineIndex"`
}

// Envelope carries exactly one of a session description or an ICE candidate.
// The zero Envelope is invalid; construct through NewDescriptionEnvelope or
// NewCandidateEnvelope so the one-variant invariant holds everywhere else.
type Envelope struct {
	description *Description
	candidate   *Candidate
}

// NewDescriptionEnvelope wraps a session description.
func NewDescriptionEnvelope(d Description) Envelope {
	return Envelope{description: &d}
}

// NewCandidateEnvelope wraps an ICE candidate.
func NewCandidateEnvelope(c Candidate) Envelope {
	return Envelope{candidate: &c}
}

// Description returns the description variant, if present.
func (e Envelope) Description() (Description, bool) {
	if e.description == nil {
		return Description{}, false
	}
	return *e.description, true
}

// Candidate returns the candidate variant, if present.
func (e Envelope) Candidate() (Candidate, bool) {
	if e.candidate == nil {
		return Candidate{}, false
	}
	return *e.candidate, true
}

// ErrMalformedEnvelope is returned by Decode when a wire message does not
// resolve to exactly one envelope variant. Subscribers drop such messages
// with a log instead of tearing down the stream.
var ErrMalformedEnvelope = errors.New("malformed signaling envelope")

// wireMessage mirrors the store record format: two optional string fields,
// each holding the JSON encoding of its inner payload. Extra fields from
// newer clients are ignored on decode.
type wireMessage struct {
	Description *string `json:"description,omitempty"`
	Candidate   *string `json:"candidate,omitempty"`
}

// Encode serializes an envelope into its wire form, populating exactly one
// of the two record fields.
func Encode(e Envelope) ([]byte, error) {
	var wire wireMessage
	switch {
	case e.description != nil:
		inner, err := json.Marshal(e.description)
		if err != nil {
			return nil, fmt.Errorf("encode description: %w", err)
		}
		s := string(inner)
		wire.Description = &s
	case e.candidate != nil:
		inner, err := json.Marshal(e.candidate)
		if err != nil {
			return nil, fmt.Errorf("encode candidate: %w", err)
		}
		s := string(inner)
		wire.Candidate = &s
	default:
		return nil, ErrMalformedEnvelope
	}
	return json.Marshal(wire)
}

// Decode parses a wire message back into an envelope. A record with both or
// neither field set, unparsable inner JSON, or a description type other than
// "offer"/"answer" fails with ErrMalformedEnvelope.
func Decode(data []byte) (Envelope, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	switch {
	case wire.Description != nil && wire.Candidate != nil:
		return Envelope{}, fmt.Errorf("%w: both variants populated", ErrMalformedEnvelope)

	case wire.Description != nil:
		var d Description
		if err := json.Unmarshal([]byte(*wire.Description), &d); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		if d.Type != TypeOffer && d.Type != TypeAnswer {
			return Envelope{}, fmt.Errorf("%w: unknown description type %q", ErrMalformedEnvelope, d.Type)
		}
		return NewDescriptionEnvelope(d), nil

	case wire.Candidate != nil:
		var c Candidate
		if err := json.Unmarshal([]byte(*wire.Candidate), &c); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return NewCandidateEnvelope(c), nil

	default:
		return Envelope{}, fmt.Errorf("%w: no variant populated", ErrMalformedEnvelope)
	}
}
