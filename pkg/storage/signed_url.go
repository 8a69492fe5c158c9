package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("storage: invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("storage: download token expired")
)

// DownloadToken is the metadata carried inside a signed download token.
type DownloadToken struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 signed download tokens of the form
// base64url(jobID|expiry|path).base64url(mac).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl defaults to a day.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, errors.New("storage: job id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("storage: signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), relPath}, "|")
	token := base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(s.sign(payload))
	return token, expiresAt, nil
}

// Verify checks the signature and, unless allowExpired is set, the expiry.
// Cleanup passes allowExpired to locate files behind stale tokens.
func (s *SignedURLSigner) Verify(token string, allowExpired bool) (DownloadToken, error) {
	encodedPayload, encodedMAC, ok := strings.Cut(token, ".")
	if !ok {
		return DownloadToken{}, ErrTokenInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return DownloadToken{}, ErrTokenInvalid
	}
	mac, err := base64.RawURLEncoding.DecodeString(encodedMAC)
	if err != nil {
		return DownloadToken{}, ErrTokenInvalid
	}
	payload := string(raw)
	if !hmac.Equal(mac, s.sign(payload)) {
		return DownloadToken{}, ErrTokenInvalid
	}
	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return DownloadToken{}, ErrTokenInvalid
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return DownloadToken{}, ErrTokenInvalid
	}
	decoded := DownloadToken{JobID: parts[0], Path: parts[2], ExpiresAt: time.Unix(expiry, 0)}
	if !allowExpired && s.now().After(decoded.ExpiresAt) {
		return decoded, ErrTokenExpired
	}
	return decoded, nil
}

func (s *SignedURLSigner) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}
