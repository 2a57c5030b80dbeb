// Package model defines the wire-level and domain types exchanged with the
// SportsTix gateway. All structs mirror the gateway's JSON contracts; the
// client never invents fields the server does not produce.
package model

import (
	"encoding/json"
	"time"
)

// Envelope is the uniform response wrapper returned by every REST endpoint:
// {success, data, error{code,message}, timestamp}. Data is kept raw so the
// transport layer can decode it into the caller's concrete type only after
// checking Success.
type Envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIErrorBody   `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

// APIErrorBody is the error half of the envelope. Code is a stable machine
// identifier (e.g. "SEAT_ALREADY_TAKEN", "QUEUE_TOKEN_EXPIRED"); Message is
// human-readable and safe to surface.
type APIErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Page is the gateway's pagination wrapper for list endpoints.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Size          int  `json:"size"`
	Number        int  `json:"number"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}
