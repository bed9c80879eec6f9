package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenExists   = errors.New("temporary token already exists for this type and value")
	ErrTokenNotFound = errors.New("temporary token not found")
)

// Store is the persistence contract for temporary tokens. The (type, token)
// uniqueness invariant and the validity predicate are both enforced at the
// storage layer.
type Store interface {
	Create(ctx context.Context, token *TemporaryToken) error
	FindByValue(ctx context.Context, value string, tokenType *string) (*TemporaryToken, error)
	FindValid(ctx context.Context, value string, tokenType *string) (*TemporaryToken, error)
	FindForOwner(ctx context.Context, ownerType, ownerID string) ([]TemporaryToken, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (*TemporaryToken, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (*TemporaryToken, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormStore implements Store on a GORM connection. The table name is
// configurable so applications can avoid collisions.
type GormStore struct {
	db        *gorm.DB
	tableName string
}

func NewGormStore(db *gorm.DB, tableName string) *GormStore {
	if tableName == "" {
		tableName = TemporaryToken{}.TableName()
	}
	return &GormStore{db: db, tableName: tableName}
}

// Migrate creates or updates the token table, including the composite unique
// index on (type, token).
func (s *GormStore) Migrate() error {
	return s.db.Table(s.tableName).AutoMigrate(&TemporaryToken{})
}

func (s *GormStore) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&TemporaryToken{}).Table(s.tableName)
}

func (s *GormStore) Create(ctx context.Context, token *TemporaryToken) error {
	if err := s.db.WithContext(ctx).Table(s.tableName).Create(token).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrTokenExists
		}
		return fmt.Errorf("failed to store temporary token: %w", err)
	}
	return nil
}

func (s *GormStore) FindByValue(ctx context.Context, value string, tokenType *string) (*TemporaryToken, error) {
	query := s.scoped(ctx).Where("token = ?", value)
	if tokenType != nil {
		query = query.Where("type = ?", *tokenType)
	}

	var token TemporaryToken
	if err := query.First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up temporary token: %w", err)
	}

	return &token, nil
}

// FindValid applies the validity predicate inside the query so validity is
// evaluated at query time, not against a previously loaded snapshot.
func (s *GormStore) FindValid(ctx context.Context, value string, tokenType *string) (*TemporaryToken, error) {
	query := s.scoped(ctx).
		Where("token = ?", value).
		Where("max_usage_limit <= 0 OR usage_count < max_usage_limit").
		Where("expires_at IS NULL OR expires_at > ?", time.Now())
	if tokenType != nil {
		query = query.Where("type = ?", *tokenType)
	}

	var token TemporaryToken
	if err := query.First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up valid temporary token: %w", err)
	}

	return &token, nil
}

func (s *GormStore) FindForOwner(ctx context.Context, ownerType, ownerID string) ([]TemporaryToken, error) {
	var found []TemporaryToken
	err := s.scoped(ctx).
		Where("tokenable_type = ? AND tokenable_id = ?", ownerType, ownerID).
		Order("created_at").
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list owner tokens: %w", err)
	}

	return found, nil
}

// IncrementUsage bumps the usage counter in a single UPDATE statement so
// concurrent callers cannot lose increments.
func (s *GormStore) IncrementUsage(ctx context.Context, id uuid.UUID) (*TemporaryToken, error) {
	result := s.scoped(ctx).
		Where("id = ?", id).
		Updates(map[string]any{"usage_count": gorm.Expr("usage_count + 1")})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to increment token usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrTokenNotFound
	}

	return s.findByID(ctx, id)
}

// MarkExpired force-sets the expiry to now, bypassing any other validation.
func (s *GormStore) MarkExpired(ctx context.Context, id uuid.UUID) (*TemporaryToken, error) {
	result := s.scoped(ctx).
		Where("id = ?", id).
		Updates(map[string]any{"expires_at": time.Now()})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to mark token as expired: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrTokenNotFound
	}

	return s.findByID(ctx, id)
}

// DeleteExpiredBefore removes every token whose expiry predates the cutoff
// in one bulk statement. Tokens without an expiry are never deleted.
func (s *GormStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Table(s.tableName).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Delete(&TemporaryToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *GormStore) findByID(ctx context.Context, id uuid.UUID) (*TemporaryToken, error) {
	var token TemporaryToken
	if err := s.scoped(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to reload temporary token: %w", err)
	}

	return &token, nil
}
