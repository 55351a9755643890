package state

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by codecs.
var (
	// ErrInvalidToken is returned when a state token is malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("state: invalid token")

	// ErrExpired is returned when a stored state token no longer exists.
	ErrExpired = errors.New("state: token expired")

	// ErrVersionMismatch is returned when a token was produced by an
	// incompatible payload format.
	ErrVersionMismatch = errors.New("state: payload version mismatch")
)

// Codec turns Locals into an opaque token that the client sends back on
// the next request, and back again.
// Implementations must be safe for concurrent use.
type Codec interface {
	Encode(ctx context.Context, locals Locals) (string, error)
	Decode(ctx context.Context, token string) (Locals, error)
}

// =============================================================================
// Signed (client-held) state
// =============================================================================

// SignedCodec keeps the state on the client: the token is the base64url
// JSON payload followed by an HMAC-SHA256 tag over it.
type SignedCodec struct {
	secret []byte
}

// NewSignedCodec creates a codec signing tokens with secret.
// A nil or empty secret generates a random one (tokens won't survive
// process restarts).
func NewSignedCodec(secret []byte) *SignedCodec {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("state: generate secret: %v", err))
		}
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return &SignedCodec{secret: cp}
}

// Encode implements Codec.
func (c *SignedCodec) Encode(_ context.Context, locals Locals) (string, error) {
	data, err := marshalLocals(locals)
	if err != nil {
		return "", fmt.Errorf("state: encode: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(data)
	return body + "." + c.sign(body), nil
}

// Decode implements Codec.
func (c *SignedCodec) Decode(_ context.Context, token string) (Locals, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(c.sign(body))) {
		return nil, ErrInvalidToken
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrInvalidToken
	}
	locals, err := unmarshalLocals(data)
	if err != nil {
		if errors.Is(err, ErrVersionMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return locals, nil
}

func (c *SignedCodec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// =============================================================================
// Stored (server-held) state
// =============================================================================

// DefaultTTL is how long server-held state stays resumable.
const DefaultTTL = 30 * time.Minute

// StoreCodec keeps the state on the server. The token handed to the
// client is a random identifier of the stored payload.
type StoreCodec struct {
	store Store
	ttl   time.Duration
}

// NewStoreCodec creates a codec persisting state in store for ttl.
// A non-positive ttl uses DefaultTTL.
func NewStoreCodec(store Store, ttl time.Duration) *StoreCodec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StoreCodec{store: store, ttl: ttl}
}

// Encode implements Codec.
func (c *StoreCodec) Encode(ctx context.Context, locals Locals) (string, error) {
	data, err := marshalLocals(locals)
	if err != nil {
		return "", fmt.Errorf("state: encode: %w", err)
	}
	token := uuid.NewString()
	if err := c.store.Save(ctx, token, data, time.Now().Add(c.ttl)); err != nil {
		return "", fmt.Errorf("state: save %s: %w", token, err)
	}
	return token, nil
}

// Decode implements Codec. A valid token extends the stored entry's
// lifetime by the codec TTL.
func (c *StoreCodec) Decode(ctx context.Context, token string) (Locals, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrInvalidToken
	}
	data, err := c.store.Load(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("state: load %s: %w", token, err)
	}
	if data == nil {
		return nil, ErrExpired
	}
	if err := c.store.Touch(ctx, token, time.Now().Add(c.ttl)); err != nil {
		return nil, fmt.Errorf("state: touch %s: %w", token, err)
	}
	return unmarshalLocals(data)
}
