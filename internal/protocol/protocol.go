// Package protocol implements the streaming speech-translation message format:
// inbound result classification and the small control frames sent upstream.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voxlate/internal/errorsx"
)

const (
	successCode       = "0"
	actionRecognition = "recognition"
	keepaliveSize     = 2
)

var endOfStream = []byte(`{"end":"true"}`)

// Result is the classified form of one inbound text message.
type Result interface {
	isResult()
}

// Recognition carries source text and its translation.
type Recognition struct {
	Context     string
	TranContent string
	Partial     bool
}

// ServiceErrorResult reports a non-success errorCode from the service.
type ServiceErrorResult struct {
	Code string
}

// Unrecognized is a well-formed success message the client has no use for.
type Unrecognized struct {
	Action string
}

// Err describes the service error as an errorsx.ReasonService error.
func (r ServiceErrorResult) Err() error {
	return errorsx.Newf(errorsx.ReasonService, "translation service returned error code %s", r.Code)
}

func (Recognition) isResult()        {}
func (ServiceErrorResult) isResult() {}
func (Unrecognized) isResult()       {}

type envelope struct {
	ErrorCode json.RawMessage `json:"errorCode"`
	Action    string          `json:"action"`
	Result    *struct {
		Context     string `json:"context"`
		TranContent string `json:"tranContent"`
		Partial     bool   `json:"partial"`
	} `json:"result"`
}

// Classify parses an inbound text payload. Malformed payloads return an error
// carrying errorsx.ReasonProtocol.
func Classify(payload []byte) (Result, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errorsx.Wrap(errors.New("empty message"), errorsx.ReasonProtocol)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("invalid result message: %w", err), errorsx.ReasonProtocol)
	}

	code, err := errorCode(env.ErrorCode)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonProtocol)
	}
	if code != successCode {
		return ServiceErrorResult{Code: code}, nil
	}

	if env.Action != actionRecognition || env.Result == nil {
		return Unrecognized{Action: env.Action}, nil
	}

	return Recognition{
		Context:     env.Result.Context,
		TranContent: env.Result.TranContent,
		Partial:     env.Result.Partial,
	}, nil
}

// errorCode accepts both "0" and 0.
func errorCode(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("missing errorCode")
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString), nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String(), nil
	}
	return "", fmt.Errorf("unsupported errorCode %s", string(raw))
}

// EndOfStream returns the graceful end-of-stream text frame.
func EndOfStream() []byte {
	return append([]byte(nil), endOfStream...)
}

// KeepaliveFrame returns the empty binary frame that keeps the connection open.
func KeepaliveFrame() []byte {
	return make([]byte, keepaliveSize)
}
