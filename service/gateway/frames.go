package gateway

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	ReplyInvalidRequest     = "Invalid request"
	ReplyActionNotSupported = "Action not supported"
)

// Envelope is the inbound wire message. Both fields are required; anything
// else never reaches dispatch.
type Envelope struct {
	Action  string
	Payload map[string]any
}

// ParseEnvelope parses and validates one inbound frame. A JSON null counts
// as a missing field.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	actionRaw, ok := m["action"]
	if !ok || string(actionRaw) == "null" {
		return nil, errors.New("missing action")
	}
	payloadRaw, ok := m["payload"]
	if !ok || string(payloadRaw) == "null" {
		return nil, errors.New("missing payload")
	}

	var env Envelope
	if err := json.Unmarshal(actionRaw, &env.Action); err != nil {
		return nil, errors.Wrap(err, "action not a string")
	}
	if err := json.Unmarshal(payloadRaw, &env.Payload); err != nil {
		return nil, errors.Wrap(err, "payload not an object")
	}
	return &env, nil
}

// Reply is the outbound wire message for every processed frame.
type Reply struct {
	Status  string `json:"status"`
	Payload any    `json:"payload"`
}

func BuildErrorReply(msg string) []byte {
	data, _ := json.Marshal(Reply{Status: StatusError, Payload: msg})
	return data
}

func BuildSuccessReply(result any) ([]byte, error) {
	data, err := json.Marshal(Reply{Status: StatusSuccess, Payload: result})
	if err != nil {
		return nil, errors.Wrap(err, "marshal reply")
	}
	return data, nil
}
