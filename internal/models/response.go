package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CodeOK is the application-level success code.
const CodeOK = 200

// APIResponse is the {code, msg, data} envelope returned by the service.
// The service is loose about types, so code may arrive as a number or a
// string and data as a string, number, object or null.
type APIResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the response carries the success code.
func (r *APIResponse) OK() bool {
	return r != nil && r.Code == CodeOK
}

// DataString renders data as plain text: strings are unquoted, null and
// absent values become "".
func (r *APIResponse) DataString() string {
	if r == nil {
		return ""
	}
	raw := bytes.TrimSpace(r.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// UnmarshalJSON accepts numeric or string codes.
func (r *APIResponse) UnmarshalJSON(b []byte) error {
	var wire struct {
		Code json.RawMessage `json:"code"`
		Msg  json.RawMessage `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	code, err := parseCode(wire.Code)
	if err != nil {
		return err
	}
	r.Code = code
	r.Msg = rawText(wire.Msg)
	r.Data = wire.Data
	return nil
}

func parseCode(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.Atoi(n.String()); err == nil {
			return i, nil
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("models: unsupported response code %s", string(raw))
}

func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
