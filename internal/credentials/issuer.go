// Package credentials mints the bearer tokens agents use to
// authenticate their heartbeat and inventory reports after
// registration.
package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validity is fixed: agents re-register (and thereby re-credential)
// far more often than every 30 days.
const Validity = 30 * 24 * time.Hour

const credentialType = "agent"

var ErrInvalidCredential = errors.New("invalid agent credential")

// Claims is what an agent credential carries. Verification is stateless:
// signature plus expiry, nothing is looked up.
type Claims struct {
	AssetID  string `json:"asset_id"`
	ClientID string `json:"client_id"`
	SiteID   string `json:"site_id"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret string
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: secret,
		now:    time.Now,
	}
}

// Issue signs a credential for the resolved asset. A signing failure is
// a hard error: an unsigned or unsigned-equivalent credential must never
// leave this function.
func (i *Issuer) Issue(assetID, clientID, siteID string) (string, error) {
	if i.secret == "" {
		return "", errors.New("agent credential secret is not configured")
	}

	now := i.now()
	claims := Claims{
		AssetID:  assetID,
		ClientID: clientID,
		SiteID:   siteID,
		Type:     credentialType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent_" + assetID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Validity)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.secret))
	if err != nil {
		return "", fmt.Errorf("sign agent credential: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
func (i *Issuer) Verify(credential string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(i.secret), nil
	})
	if err != nil {
		return nil, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != credentialType {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}
