// Package credential implements the signed check-in credential: an Ed25519
// JWT binding a ticket, its event and its current nonce. The credential is
// a bearer artifact with no expiry; its validity is decided entirely by the
// nonce ledger at scan time, not by any clock baked into the token.
package credential

import (
	"crypto/ed25519"

	"github.com/golang-jwt/jwt/v5"

	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Claims represents the JWT claims for check-in credentials. Subject carries
// the ticket ID, Audience the event ID, and Nonce the single-use value the
// ledger resolves. There is deliberately no ExpiresAt: consumption, not time,
// is what invalidates a credential.
type Claims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// TicketID parses the subject claim.
func (c *Claims) TicketID() (id.TicketID, error) {
	return id.ParseTicketID(c.Subject)
}

// EventID parses the audience claim. Exactly one audience entry is required.
func (c *Claims) EventID() (id.EventID, error) {
	if len(c.Audience) != 1 {
		return id.EventID{}, dErrors.New(dErrors.CodeCredentialRejected, "credential must name exactly one event")
	}
	return id.ParseEventID(c.Audience[0])
}

// Signer mints credentials with a private key the validation side never
// holds. Issuance and validation can therefore run as separate deployments
// with different secret material.
type Signer struct {
	key     ed25519.PrivateKey
	version string
}

// NewSigner creates a credential signer for the given key version.
func NewSigner(key ed25519.PrivateKey, version string) *Signer {
	return &Signer{key: key, version: version}
}

// Sign produces the serialized credential for a ticket. The key version rides
// in the kid header so verification keeps working across key rotation.
func (s *Signer) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = s.version

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign credential")
	}
	return signed, nil
}

// Verifier checks credential signatures against one or more public keys,
// selected by the kid header. It holds no private material.
type Verifier struct {
	keys           map[string]ed25519.PublicKey
	defaultVersion string
}

// NewVerifier creates a verifier trusting the given key versions. The
// defaultVersion is used for credentials minted before kid headers existed.
func NewVerifier(keys map[string]ed25519.PublicKey, defaultVersion string) *Verifier {
	return &Verifier{keys: keys, defaultVersion: defaultVersion}
}

// NewVerifierForKey is a convenience for the common single-key deployment.
func NewVerifierForKey(key ed25519.PublicKey, version string) *Verifier {
	return NewVerifier(map[string]ed25519.PublicKey{version: key}, version)
}

// Verify parses and verifies a serialized credential. Any failure, from
// malformed input to a bad signature to missing claims, comes back as a
// single credential_rejected domain error; callers must not surface the
// distinction to the presenter.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		version := v.defaultVersion
		if kid, ok := token.Header["kid"].(string); ok {
			version = kid
		}
		key, ok := v.keys[version]
		if !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialRejected, "credential failed verification")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeCredentialRejected, "credential failed verification")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeCredentialRejected, "credential claims malformed")
	}
	if claims.Nonce == "" || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, dErrors.New(dErrors.CodeCredentialRejected, "credential claims incomplete")
	}
	if _, err := claims.TicketID(); err != nil {
		return nil, dErrors.New(dErrors.CodeCredentialRejected, "credential subject malformed")
	}
	if _, err := claims.EventID(); err != nil {
		return nil, dErrors.New(dErrors.CodeCredentialRejected, "credential audience malformed")
	}
	return claims, nil
}
