package gatewaysdk

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire-level message wrapper exchanged with the gateway.
// Payload is kept as raw JSON so callers can defer unmarshaling to their own
// types.
type Envelope struct {
	Type          MessageType     `json:"type"`
	Subject       string          `json:"subject,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	DeviceID      string          `json:"deviceId,omitempty"`
}

// wireEnvelope mirrors Envelope but with a millisecond-epoch timestamp,
// matching the gateway's wire format.
type wireEnvelope struct {
	Type          MessageType     `json:"type"`
	Subject       string          `json:"subject,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Timestamp     int64           `json:"timestamp,omitempty"`
	DeviceID      string          `json:"deviceId,omitempty"`
}

// ParseError wraps a codec failure with the offending raw text, truncated
// for safety.
type ParseError struct {
	Reason string
	Raw    string
	err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gatewaysdk: parse error: %s: %s", e.Reason, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.err
}

func newParseError(reason string, raw []byte, err error) *ParseError {
	const maxEcho = 128
	s := string(raw)
	if len(s) > maxEcho {
		s = s[:maxEcho] + "..."
	}
	return &ParseError{Reason: reason, Raw: s, err: err}
}

// EncodeEnvelope serializes env to its wire JSON form. A zero Timestamp is
// filled in with the current time. Absent optional fields are omitted.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	ts := env.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	w := wireEnvelope{
		Type:          env.Type,
		Subject:       env.Subject,
		Payload:       env.Payload,
		CorrelationID: env.CorrelationID,
		Timestamp:     ts.UnixMilli(),
		DeviceID:      env.DeviceID,
	}

	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("gatewaysdk: encode envelope: %w", err)
	}
	return b, nil
}

// DecodeEnvelope parses raw wire JSON into an Envelope. Decoding is lenient:
// unknown top-level fields are ignored, and a missing timestamp defaults to
// now. A Type value outside the known MessageType range is rejected with a
// ParseError.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, newParseError("malformed json", raw, err)
	}

	if w.Type < TypePublish || w.Type > TypePong {
		return Envelope{}, newParseError("unknown message type", raw, nil)
	}

	ts := time.Now().UTC()
	if w.Timestamp != 0 {
		ts = time.UnixMilli(w.Timestamp).UTC()
	}

	return Envelope{
		Type:          w.Type,
		Subject:       w.Subject,
		Payload:       w.Payload,
		CorrelationID: w.CorrelationID,
		Timestamp:     ts,
		DeviceID:      w.DeviceID,
	}, nil
}
