package models

import "time"

type ProtectedUser struct {
	UserID              string    `json:"user_id,omitempty"`
	LastExternalRequest string    `json:"last_external_request,omitempty"`
	LastRequestAt       time.Time `json:"last_request_at,omitempty"`
	LastAckNote         string    `json:"last_ack_note,omitempty"`
	LastAckAt           time.Time `json:"last_ack_at,omitempty"`
}
