package tokens

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemporaryToken is a short-lived, limited-use token, optionally bound to an
// owning entity through the tokenable reference pair.
type TemporaryToken struct {
	ID            uuid.UUID      `json:"id" gorm:"size:36;primaryKey"`
	Type          *string        `json:"type,omitempty" gorm:"size:255;index:idx_temporary_tokens_type_token,unique,priority:1"`
	Token         string         `json:"token" gorm:"size:255;not null;index;index:idx_temporary_tokens_type_token,unique,priority:2"`
	UsageCount    int            `json:"usage_count" gorm:"not null;default:0"`
	MaxUsageLimit int            `json:"max_usage_limit" gorm:"not null;default:1"`
	Metadata      map[string]any `json:"metadata,omitempty" gorm:"serializer:json"`
	TokenableType *string        `json:"tokenable_type,omitempty" gorm:"size:255;index:idx_temporary_tokens_tokenable,priority:1"`
	TokenableID   *string        `json:"tokenable_id,omitempty" gorm:"size:255;index:idx_temporary_tokens_tokenable,priority:2"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (TemporaryToken) TableName() string {
	return "temporary_tokens"
}

func (t *TemporaryToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// HasUsed reports whether the token has been used at least once.
func (t *TemporaryToken) HasUsed() bool {
	return t.UsageCount > 0
}

// HasExpired reports whether the expiry timestamp has passed. Tokens without
// an expiry never expire.
func (t *TemporaryToken) HasExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}

// HasMaxUsageLimit reports whether a usage limit is set. A limit of zero or
// fewer means unlimited usage.
func (t *TemporaryToken) HasMaxUsageLimit() bool {
	return t.MaxUsageLimit > 0
}

// HasExceededMaxUsage reports whether the usage count has reached the limit.
func (t *TemporaryToken) HasExceededMaxUsage() bool {
	return t.HasMaxUsageLimit() && t.UsageCount >= t.MaxUsageLimit
}

// IsValid reports whether the token may currently be accepted: not expired
// and not over its usage limit.
func (t *TemporaryToken) IsValid() bool {
	return !(t.HasExpired() || t.HasExceededMaxUsage())
}

// Owner returns the bound owner reference, or nil when the token is not
// bound to an entity.
func (t *TemporaryToken) Owner() *Owner {
	if t.TokenableType == nil || t.TokenableID == nil {
		return nil
	}
	return &Owner{Type: *t.TokenableType, ID: *t.TokenableID}
}

// BindOwner sets both tokenable fields from the given entity. The pair is
// always written together.
func (t *TemporaryToken) BindOwner(owner Tokenable) {
	ownerType := owner.TokenableType()
	ownerID := owner.TokenableID()
	t.TokenableType = &ownerType
	t.TokenableID = &ownerID
}
