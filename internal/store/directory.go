package store

import (
	"context"

	"github.com/lanetsoft/agent-hub/internal/directory"
)

const getClientSiteSQL = `
SELECT c.id::text, c.code, c.name, s.id::text, s.code, s.name
FROM clients c
JOIN sites s ON s.client_id = c.id
WHERE c.id = $1::uuid AND s.id = $2::uuid AND c.active AND s.active`

func (s *Store) GetClientSite(ctx context.Context, clientID, siteID string) (directory.ClientSite, error) {
	var cs directory.ClientSite
	err := s.pool.QueryRow(ctx, getClientSiteSQL, clientID, siteID).Scan(
		&cs.ClientID, &cs.ClientCode, &cs.ClientName,
		&cs.SiteID, &cs.SiteCode, &cs.SiteName,
	)
	if err != nil {
		return directory.ClientSite{}, err
	}
	return cs, nil
}
