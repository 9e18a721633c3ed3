package directory

// ClientSite is a resolved (client, site) pair: internal IDs, the short
// codes used when composing installation token values, and the display
// names shown to operators.
type ClientSite struct {
	ClientID   string
	ClientCode string
	ClientName string
	SiteID     string
	SiteCode   string
	SiteName   string
}
