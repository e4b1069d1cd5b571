package credential

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gatekeeper/pkg/domain"
	dErrors "gatekeeper/pkg/domain-errors"
)

func newTestClaims() Claims {
	return Claims{
		Nonce: "test-nonce-value",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  uuid.NewString(),
			Audience: jwt.ClaimStrings{uuid.NewString()},
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	}
}

func TestSignAndVerify_RoundTrip(t *testing.T) {
	pair, err := GenerateKeyPair("v1")
	require.NoError(t, err)

	signer := NewSigner(pair.Private, pair.Version)
	verifier := NewVerifierForKey(pair.Public, pair.Version)

	claims := newTestClaims()
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verified, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, claims.Nonce, verified.Nonce)
	assert.Equal(t, claims.Subject, verified.Subject)

	ticketID, err := verified.TicketID()
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, ticketID.String())

	eventID, err := verified.EventID()
	require.NoError(t, err)
	assert.Equal(t, claims.Audience[0], eventID.String())
}

func TestVerify_WrongKeyRejected(t *testing.T) {
	signingPair, err := GenerateKeyPair("v1")
	require.NoError(t, err)
	otherPair, err := GenerateKeyPair("v1")
	require.NoError(t, err)

	token, err := NewSigner(signingPair.Private, "v1").Sign(newTestClaims())
	require.NoError(t, err)

	verifier := NewVerifierForKey(otherPair.Public, "v1")
	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCredentialRejected))
}

func TestVerify_TamperedPayloadRejected(t *testing.T) {
	pair, err := GenerateKeyPair("v1")
	require.NoError(t, err)

	claims := newTestClaims()
	token, err := NewSigner(pair.Private, "v1").Sign(claims)
	require.NoError(t, err)

	// Swap the nonce inside the payload segment without re-signing.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	tampered := strings.Replace(string(payload), claims.Nonce, "forged-nonce-val", 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(tampered))

	_, err = NewVerifierForKey(pair.Public, "v1").Verify(strings.Join(parts, "."))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCredentialRejected))
}

func TestVerify_GarbageRejected(t *testing.T) {
	pair, err := GenerateKeyPair("v1")
	require.NoError(t, err)
	verifier := NewVerifierForKey(pair.Public, "v1")

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := verifier.Verify(input)
		require.Error(t, err, "input %q should be rejected", input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCredentialRejected))
	}
}

func TestVerify_HMACSignedTokenRejected(t *testing.T) {
	// Algorithm confusion: an attacker who knows the public key must not be
	// able to mint an HMAC token that verifies against it.
	pair, err := GenerateKeyPair("v1")
	require.NoError(t, err)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, newTestClaims())
	forged.Header["kid"] = "v1"
	token, err := forged.SignedString([]byte(pair.Public))
	require.NoError(t, err)

	_, err = NewVerifierForKey(pair.Public, "v1").Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCredentialRejected))
}

func TestVerify_UnknownKeyVersionRejected(t *testing.T) {
	pair, err := GenerateKeyPair("v2")
	require.NoError(t, err)

	token, err := NewSigner(pair.Private, "v2").Sign(newTestClaims())
	require.NoError(t, err)

	verifier := NewVerifier(map[string]ed25519.PublicKey{"v1": pair.Public}, "v1")
	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCredentialRejected))
}

func TestVerify_KeyRotationOldCredentialStillVerifies(t *testing.T) {
	oldPair, err := GenerateKeyPair("v1")
	require.NoError(t, err)
	newPair, err := GenerateKeyPair("v2")
	require.NoError(t, err)

	oldToken, err := NewSigner(oldPair.Private, "v1").Sign(newTestClaims())
	require.NoError(t, err)

	verifier := NewVerifier(map[string]ed25519.PublicKey{
		"v1": oldPair.Public,
		"v2": newPair.Public,
	}, "v2")

	_, err = verifier.Verify(oldToken)
	require.NoError(t, err)
}

func TestVerify_MissingNonceRejected(t *testing.T) {
	pair, err := GenerateKeyPair("v1")
	require.NoError(t, err)

	claims := newTestClaims()
	claims.Nonce = ""
	token, err := NewSigner(pair.Private, "v1").Sign(claims)
	require.NoError(t, err)

	_, err = NewVerifierForKey(pair.Public, "v1").Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCredentialRejected))
}

func TestVerify_MultipleAudiencesRejected(t *testing.T) {
	pair, err := GenerateKeyPair("v1")
	require.NoError(t, err)

	claims := newTestClaims()
	claims.Audience = jwt.ClaimStrings{uuid.NewString(), uuid.NewString()}
	token, err := NewSigner(pair.Private, "v1").Sign(claims)
	require.NoError(t, err)

	_, err = NewVerifierForKey(pair.Public, "v1").Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCredentialRejected))
}

func TestNewNonce_UniqueAndURLSafe(t *testing.T) {
	seen := make(map[id.Nonce]bool)
	for i := 0; i < 100; i++ {
		nonce, err := NewNonce()
		require.NoError(t, err)
		assert.False(t, seen[nonce], "nonce collision")
		seen[nonce] = true

		_, err = base64.RawURLEncoding.DecodeString(nonce.String())
		require.NoError(t, err)
	}
}

func TestKeyPEMRoundTrip(t *testing.T) {
	pair, err := GenerateKeyPair("v1")
	require.NoError(t, err)

	privPEM, err := MarshalPrivateKeyPEM(pair.Private)
	require.NoError(t, err)
	pubPEM, err := MarshalPublicKeyPEM(pair.Public)
	require.NoError(t, err)

	priv, err := ParsePrivateKeyPEM(privPEM)
	require.NoError(t, err)
	pub, err := ParsePublicKeyPEM(pubPEM)
	require.NoError(t, err)

	token, err := NewSigner(priv, "v1").Sign(newTestClaims())
	require.NoError(t, err)
	_, err = NewVerifierForKey(pub, "v1").Verify(token)
	require.NoError(t, err)
}
