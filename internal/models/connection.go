package models

import "time"

// ConnectionState is the monitor's belief about store reachability.
type ConnectionState string

const (
	StateUnknown      ConnectionState = "unknown"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateRetrying     ConnectionState = "retrying"
	StateFailed       ConnectionState = "failed"
)

// ErrorCode classifies probe and store failures. Raw store errors never cross
// the monitor boundary; consumers only ever see status objects.
type ErrorCode string

const (
	ErrorNone             ErrorCode = ""
	ErrorOffline          ErrorCode = "offline"
	ErrorPermissionDenied ErrorCode = "permission_denied"
	ErrorMissingIndex     ErrorCode = "missing_index"
	ErrorConflict         ErrorCode = "conflict"
	ErrorUnknown          ErrorCode = "unknown"
)

// ConnectionStatus is the snapshot delivered to connection listeners.
type ConnectionStatus struct {
	State             ConnectionState `json:"state"`
	Connected         bool            `json:"connected"`
	LastConnected     *time.Time      `json:"last_connected,omitempty"`
	Error             string          `json:"error,omitempty"`
	ErrorCode         ErrorCode       `json:"error_code,omitempty"`
	RetryCount        int             `json:"retry_count"`
	MaxRetriesReached bool            `json:"max_retries_reached"`
	CheckedAt         time.Time       `json:"checked_at"`
}
