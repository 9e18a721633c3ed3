package assets

import "time"

// Asset is the persistent record for one monitored device. The
// fingerprint and its confidence are first-class columns (duplicated
// inside Specifications for the inventory view) so resolution and
// auditing never have to dig through JSON.
type Asset struct {
	ID                    string
	ClientID              string
	SiteID                string
	Name                  string
	Type                  string
	Status                string
	AgentStatus           string
	Fingerprint           string
	FingerprintConfidence string
	LastSeen              *time.Time
	Specifications        map[string]any
	CreatedAt             time.Time
}

const (
	StatusActive = "active"

	AgentStatusOnline  = "online"
	AgentStatusOffline = "offline"

	DefaultType = "workstation"
)
