package model

import "time"

// FailureKind tells the boundary which class of failure a PublishResult
// carries so it can pick an HTTP status.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTransient
	FailureAuth
	FailureFatal
)

// PublishRequest is the inbound payload, immutable once decoded. Media
// payloads are base64 strings, optionally with a data: URI prefix.
type PublishRequest struct {
	Text    string   `json:"text"`
	Media   []string `json:"media,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// PublishResult is the single outcome of one accepted request.
type PublishResult struct {
	Success   bool
	TweetID   string
	Message   string
	Kind      FailureKind
	Attempts  int
	CreatedAt time.Time
}

const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)

// LogEntry is the append-only record of one publish attempt's outcome.
// Never mutated after creation.
type LogEntry struct {
	ID           string    `db:"id" json:"id"`
	TweetID      string    `db:"tweet_id" json:"tweet_id,omitempty"`
	Text         string    `db:"text" json:"text"`
	Status       string    `db:"status" json:"status"`
	Attempts     int       `db:"attempts" json:"attempts"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
