package events

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidPath     = errors.New("invalid path")
	ErrInvalidIdentity = errors.New("invalid visitor or session ID")
)

// PageViewRequest is the raw body accepted by the page view function.
// Fields stay untyped so that a wrong JSON type is a validation failure
// rather than a decode failure.
type PageViewRequest struct {
	Path      any `json:"path"`
	Referrer  any `json:"referrer"`
	UserAgent any `json:"user_agent"`
	VisitorID any `json:"visitor_id"`
	SessionID any `json:"session_id"`
}

// WhatsAppClickRequest is the raw body accepted by the WhatsApp click function.
type WhatsAppClickRequest struct {
	Source    any `json:"source"`
	VisitorID any `json:"visitor_id"`
	SessionID any `json:"session_id"`
	PagePath  any `json:"page_path"`
}

// ValidPath reports whether v is a non-empty string of at most 500 characters starting with "/".
func ValidPath(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= MaxPathLength && strings.HasPrefix(s, "/")
}

// ValidIdentity reports whether v is a usable visitor or session ID.
func ValidIdentity(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= MaxIdentityLength
}

// NewPageView validates req and returns the sanitized row to insert.
func NewPageView(req PageViewRequest, now time.Time) (*PageView, error) {
	if !ValidPath(req.Path) {
		return nil, ErrInvalidPath
	}
	if !ValidIdentity(req.VisitorID) || !ValidIdentity(req.SessionID) {
		return nil, ErrInvalidIdentity
	}

	return &PageView{
		Path:      *SanitizeString(req.Path, MaxPathLength),
		Referrer:  SanitizeString(req.Referrer, MaxReferrerLength),
		UserAgent: SanitizeString(req.UserAgent, MaxUserAgentLen),
		VisitorID: trimmed(req.VisitorID, MaxIdentityLength),
		SessionID: trimmed(req.SessionID, MaxIdentityLength),
		CreatedAt: now.UTC(),
	}, nil
}

// NewWhatsAppClick sanitizes req into the row to insert. Every field is optional.
func NewWhatsAppClick(req WhatsAppClickRequest, now time.Time) *WhatsAppClick {
	source := UnknownSource
	if s := SanitizeString(req.Source, MaxSourceLength); s != nil {
		source = *s
	}

	return &WhatsAppClick{
		Source:    source,
		VisitorID: SanitizeString(req.VisitorID, MaxIdentityLength),
		SessionID: SanitizeString(req.SessionID, MaxIdentityLength),
		PagePath:  SanitizeString(req.PagePath, MaxPagePathLength),
		CreatedAt: now.UTC(),
	}
}

// SanitizeString trims v and caps it at max characters.
// It returns nil when v is not a string or is blank after trimming.
func SanitizeString(v any, max int) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = Truncate(strings.TrimSpace(s), max)
	if s == "" {
		return nil
	}
	return &s
}

// trimmed is SanitizeString for validated required fields, where blank stays "".
func trimmed(v any, max int) string {
	if s := SanitizeString(v, max); s != nil {
		return *s
	}
	return ""
}

// Truncate caps s at max runes.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
