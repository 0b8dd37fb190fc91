package net

import (
	"net/http"

	perr "timecapsule/internal/platform/errors"
)

// Envelope is the body of every API response
// Exactly one of Data or Error is meaningful, selected by Success
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Meta      any        `json:"meta,omitempty"`
	Error     *perr.Wire `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// Success builds a success envelope for status
func Success(status int, data, meta any, reqID string) (int, Envelope) {
	if status == 0 {
		status = http.StatusOK
	}
	return status, Envelope{Success: true, Data: data, Meta: meta, RequestID: reqID}
}

// Failure builds an error envelope with the status mapped from err
func Failure(err error, reqID string) (int, Envelope) {
	status, w := perr.HTTP(err)
	return status, Envelope{Success: false, Error: &w, RequestID: reqID}
}
