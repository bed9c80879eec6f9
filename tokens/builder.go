package tokens

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

var ErrRandomSourceUnavailable = errors.New("secure random source unavailable")

// DefaultTokenLength is used when no length is configured on the builder.
const DefaultTokenLength = 6

// TokenBuilder is a fluent configuration object for new temporary tokens.
// When no explicit value is set, Build generates a random numeric token of
// the configured length.
type TokenBuilder struct {
	store      Store
	token      *string
	tokenType  *string
	metadata   map[string]any
	expiresAt  *time.Time
	owner      Tokenable
	usageLimit int
	length     int
}

// NewTokenBuilder returns a builder with the package defaults: single use,
// no type, no expiry, random numeric value of the given length.
func NewTokenBuilder(store Store, defaultLength int) *TokenBuilder {
	if defaultLength < 1 {
		defaultLength = DefaultTokenLength
	}
	return &TokenBuilder{
		store:      store,
		usageLimit: 1,
		length:     defaultLength,
	}
}

// SetToken sets an explicit token value, disabling random generation. The
// value is used as-is, even when empty.
func (b *TokenBuilder) SetToken(token string) *TokenBuilder {
	b.token = &token
	return b
}

func (b *TokenBuilder) Token() string {
	if b.token == nil {
		return ""
	}
	return *b.token
}

func (b *TokenBuilder) SetType(tokenType string) *TokenBuilder {
	b.tokenType = &tokenType
	return b
}

func (b *TokenBuilder) Type() *string {
	return b.tokenType
}

func (b *TokenBuilder) SetMetadata(metadata map[string]any) *TokenBuilder {
	b.metadata = metadata
	return b
}

func (b *TokenBuilder) Metadata() map[string]any {
	return b.metadata
}

func (b *TokenBuilder) SetExpiresAt(expiresAt time.Time) *TokenBuilder {
	b.expiresAt = &expiresAt
	return b
}

func (b *TokenBuilder) ExpiresAt() *time.Time {
	return b.expiresAt
}

func (b *TokenBuilder) SetUsageLimit(limit int) *TokenBuilder {
	b.usageLimit = limit
	return b
}

func (b *TokenBuilder) UsageLimit() int {
	return b.usageLimit
}

func (b *TokenBuilder) SetTokenLength(length int) *TokenBuilder {
	b.length = length
	return b
}

func (b *TokenBuilder) TokenLength() int {
	return b.length
}

func (b *TokenBuilder) SetOwner(owner Tokenable) *TokenBuilder {
	b.owner = owner
	return b
}

func (b *TokenBuilder) Owner() Tokenable {
	return b.owner
}

// Build assembles an unsaved token from the configured attributes,
// generating a random value when none was set explicitly.
func (b *TokenBuilder) Build() (*TemporaryToken, error) {
	var value string
	if b.token != nil {
		value = *b.token
	} else {
		n, err := generateRandomInt(b.length)
		if err != nil {
			return nil, err
		}
		value = strconv.FormatInt(n, 10)
	}

	token := &TemporaryToken{
		Token:         value,
		Type:          b.tokenType,
		MaxUsageLimit: b.usageLimit,
		Metadata:      b.metadata,
		ExpiresAt:     b.expiresAt,
	}

	if b.owner != nil {
		token.BindOwner(b.owner)
	}

	return token, nil
}

// Create builds the token and persists it through the store.
func (b *TokenBuilder) Create(ctx context.Context) (*TemporaryToken, error) {
	token, err := b.Build()
	if err != nil {
		return nil, err
	}

	if err := b.store.Create(ctx, token); err != nil {
		return nil, err
	}

	return token, nil
}

// generateRandomInt draws a uniform integer with the given number of digits
// from a cryptographically secure source. The lower bound sits one above the
// smallest value with that many digits; existing token consumers depend on
// the historical range, so it is kept as-is.
func generateRandomInt(length int) (int64, error) {
	if length < 1 || length > 18 {
		return 0, fmt.Errorf("token length must be between 1 and 18, got %d", length)
	}

	lower := pow10(length-1) + 1
	upper := pow10(length) - 1

	n, err := rand.Int(rand.Reader, big.NewInt(upper-lower+1))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRandomSourceUnavailable, err)
	}

	return lower + n.Int64(), nil
}

func pow10(exp int) int64 {
	result := int64(1)
	for i := 0; i < exp; i++ {
		result *= 10
	}
	return result
}
