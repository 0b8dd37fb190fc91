// Package token mints and verifies Ed25519 signed bearer tokens
//
// Wire format: base64url(cbor(Claims) || ed25519 signature). Claims use Core Deterministic
// CBOR so the same claims always sign the same bytes.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"timecapsule/internal/platform/clock"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const signatureSize = ed25519.SignatureSize

// Claims is the signed payload
type Claims struct {
	Subject   string `cbor:"1,keyasint"`
	Audience  string `cbor:"2,keyasint"`
	ID        string `cbor:"3,keyasint"`
	IssuedAt  int64  `cbor:"4,keyasint"`
	ExpiresAt int64  `cbor:"5,keyasint"`
}

// Errors returned by Verify
var (
	ErrMalformed        = errors.New("token: malformed")
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrExpired          = errors.New("token: expired")
	ErrAudienceMismatch = errors.New("token: audience mismatch")
	ErrNoSubject        = errors.New("token: missing subject")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("token: cbor encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic("token: cbor decoder: " + err.Error())
	}
}

// GenerateKeypair creates a fresh signing keypair
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("token: generate keypair: %w", err)
	}
	return pub, priv, nil
}

// ParsePublicKey checks the key size
func ParsePublicKey(b []byte) (ed25519.PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("token: public key has %d bytes, want %d", len(b), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(b), nil
}

// ParsePrivateKey accepts a 64 byte private key or a 32 byte seed
func ParsePrivateKey(b []byte) (ed25519.PrivateKey, error) {
	switch len(b) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	}
	return nil, fmt.Errorf("token: private key has %d bytes, want %d or %d", len(b), ed25519.PrivateKeySize, ed25519.SeedSize)
}

// Mint signs claims and returns the bearer string
// a blank ID is filled with a random uuid
func Mint(priv ed25519.PrivateKey, c Claims) (string, error) {
	if strings.TrimSpace(c.Subject) == "" {
		return "", ErrNoSubject
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	payload, err := encMode.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("token: encode claims: %w", err)
	}
	sig := ed25519.Sign(priv, payload)

	raw := make([]byte, 0, len(payload)+signatureSize)
	raw = append(raw, payload...)
	raw = append(raw, sig...)
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// MintFor is Mint with IssuedAt and ExpiresAt derived from now and ttl
func MintFor(priv ed25519.PrivateKey, subject, audience string, now time.Time, ttl time.Duration) (string, error) {
	return Mint(priv, Claims{
		Subject:   subject,
		Audience:  audience,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
}

// Verifier checks bearer strings against one public key and audience
type Verifier struct {
	pub      ed25519.PublicKey
	audience string
	clock    clock.Clock
}

// NewVerifier builds a Verifier; an empty audience skips the audience check
func NewVerifier(pub ed25519.PublicKey, audience string, c clock.Clock) *Verifier {
	if c == nil {
		c = clock.Real()
	}
	return &Verifier{pub: pub, audience: audience, clock: c}
}

// Verify decodes the bearer, checks the signature, expiry and audience
func (v *Verifier) Verify(bearer string) (Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(bearer), "="))
	if err != nil || len(raw) <= signatureSize {
		return Claims{}, ErrMalformed
	}
	split := len(raw) - signatureSize
	payload, sig := raw[:split], raw[split:]

	if !ed25519.Verify(v.pub, payload, sig) {
		return Claims{}, ErrInvalidSignature
	}

	var c Claims
	if err := decMode.Unmarshal(payload, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.Subject == "" {
		return Claims{}, ErrNoSubject
	}
	if v.clock.Now().Unix() >= c.ExpiresAt {
		return Claims{}, ErrExpired
	}
	if v.audience != "" && c.Audience != v.audience {
		return Claims{}, fmt.Errorf("%w: got %q, want %q", ErrAudienceMismatch, c.Audience, v.audience)
	}
	return c, nil
}

// UserID verifies bearer and returns its subject; it matches httpkit.TokenFunc
func (v *Verifier) UserID(bearer string) (string, error) {
	c, err := v.Verify(bearer)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}
