package cloud

import "strings"

// ErrorKind classifies a cloud failure. Errors of this type never
// escape the service boundary as panics; callers receive them as
// values and decide how to surface them.
type ErrorKind string

const (
	// ErrTransport covers connection failures and unexpected HTTP statuses.
	ErrTransport ErrorKind = "transport"
	// ErrAuth covers 401 responses and unverified connections.
	ErrAuth ErrorKind = "auth"
	// ErrState covers OAuth state mismatches.
	ErrState ErrorKind = "state"
	// ErrBusiness covers failures the remote side reports in-band.
	ErrBusiness ErrorKind = "business"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// SyncResult is the outcome of a sync operation. The field set mirrors
// what the admin UI branches on: single downloads carry the new local
// snippet id and the cloud id of the link, bulk operations only the
// success flag and action label.
type SyncResult struct {
	Success   bool   `json:"success"`
	Action    string `json:"action,omitempty"`
	Error     string `json:"error,omitempty"`
	SnippetID int64  `json:"snippet_id,omitempty"`
	LinkID    int64  `json:"link_id,omitempty"`
}

func syncFailure(msg string) SyncResult {
	return SyncResult{Success: false, Error: msg}
}

// ConnectionResult tells the caller which settings screen to land on
// after a connection attempt.
type ConnectionResult struct {
	Success      bool   `json:"success"`
	RedirectSlug string `json:"redirect-slug"`
	Message      string `json:"message,omitempty"`
}

// isNoCodevaultMessage detects the "no codevault configured" business
// failure. The remote API signals it only through free text, so the
// fragile substring match lives here and nowhere else.
func isNoCodevaultMessage(message string) bool {
	return strings.Contains(message, "No Codevault!")
}
