package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidLink marks tokens that are malformed or carry a bad signature.
	ErrInvalidLink = errors.New("invalid download link")
	// ErrLinkExpired marks well-formed tokens past their expiry.
	ErrLinkExpired = errors.New("download link expired")
)

// Link is the payload carried by a signed download token.
type Link struct {
	Resource  string    `json:"r"`
	Name      string    `json:"n"`
	Format    string    `json:"f"`
	ExpiresAt time.Time `json:"-"`
	Expiry    int64     `json:"e"`
}

// LinkSigner issues and verifies HMAC-SHA256 signed download tokens of the
// form base64url(payload) "." base64url(mac).
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner constructs a signer with the provided secret and TTL.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for the stored file name of a resource.
func (s *LinkSigner) Sign(resource, name, format string) (string, time.Time, error) {
	if resource == "" || name == "" {
		return "", time.Time{}, fmt.Errorf("resource and name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	payload, err := json.Marshal(Link{Resource: resource, Name: name, Format: format, Expiry: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode link: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.mac(body), expiresAt, nil
}

// Verify checks the token signature and expiry and returns its payload.
func (s *LinkSigner) Verify(token string) (Link, error) {
	body, signature, ok := strings.Cut(token, ".")
	if !ok || body == "" || signature == "" {
		return Link{}, ErrInvalidLink
	}
	if !hmac.Equal([]byte(s.mac(body)), []byte(signature)) {
		return Link{}, ErrInvalidLink
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Link{}, ErrInvalidLink
	}
	var link Link
	if err := json.Unmarshal(raw, &link); err != nil {
		return Link{}, ErrInvalidLink
	}
	link.ExpiresAt = time.Unix(link.Expiry, 0).UTC()
	if s.now().After(link.ExpiresAt) {
		return link, ErrLinkExpired
	}
	return link, nil
}

func (s *LinkSigner) mac(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
