package ledger

import (
	"encoding/json"
	"time"

	"github.com/lanetsoft/agent-hub/internal/fingerprint"
)

// Entry is one validate/register attempt. Entries are write-once audit
// data: nothing in the registration path ever reads them back.
type Entry struct {
	TokenValue   string
	IPAddress    string
	UserAgent    string
	ComputerName string
	Snapshot     fingerprint.Report
	Success      bool
	AssetID      string // empty unless the attempt resolved an asset
	ErrorMessage string // empty on success
}

func marshalReport(r fingerprint.Report) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// UsageRecord is the persisted form of an Entry.
type UsageRecord struct {
	ID           string
	TokenID      string
	IPAddress    string
	UserAgent    string
	ComputerName string
	Snapshot     map[string]any
	Success      bool
	AssetID      *string
	ErrorMessage *string
	CreatedAt    time.Time
}
