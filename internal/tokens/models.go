package tokens

import (
	"time"
)

// Token is an installation token: a scoped, shareable secret that
// authorizes new agents to register against one (client, site) pair.
// The scope is immutable after creation; only is_active, usage_count
// and last_used_at ever change.
type Token struct {
	ID         string
	ClientID   string
	SiteID     string
	ClientName string
	SiteName   string
	Value      string
	CreatedBy  string
	CreatedAt  time.Time
	ExpiresAt  *time.Time // nil = never expires
	IsActive   bool
	UsageCount int
	LastUsedAt *time.Time
	Notes      string
}

// ValidationResult is returned as data, not as an error: installer UIs
// branch on the specific message, so each invalid case carries a stable
// pre-composed text.
type ValidationResult struct {
	IsValid      bool
	ClientID     string
	SiteID       string
	ErrorMessage string
}

// Stable messages for the three invalid cases. The installer shows these
// verbatim.
const (
	MsgTokenNotFound = "Invalid installation token"
	MsgTokenInactive = "Installation token is inactive"
	MsgTokenExpired  = "Installation token has expired"
)
