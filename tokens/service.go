package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/daniyousefifar/temptokens/config"
	"github.com/daniyousefifar/temptokens/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the entry point for issuing, validating and pruning temporary
// tokens.
type Service struct {
	store  Store
	config *config.Config
	logger *logging.Service
}

func NewService(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Service {
	return NewServiceWithStore(NewGormStore(db, cfg.Tokens.TableName), cfg, logger)
}

func NewServiceWithStore(store Store, cfg *config.Config, logger *logging.Service) *Service {
	if logger != nil {
		logger.Info("initializing temporary token service",
			zap.String("table_name", cfg.Tokens.TableName),
			zap.Int("default_token_length", cfg.Tokens.DefaultTokenLength),
			zap.Int("prune_expired_after_hours", cfg.Tokens.PruneExpiredAfterHours))
	}

	return &Service{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Builder returns a token builder bound to this service's store, with the
// configured default token length.
func (s *Service) Builder() *TokenBuilder {
	return NewTokenBuilder(s.store, s.config.Tokens.DefaultTokenLength)
}

// BuilderFor returns a builder pre-bound to the given owner, the factory any
// token-owning entity exposes.
func (s *Service) BuilderFor(owner Tokenable) *TokenBuilder {
	return s.Builder().SetOwner(owner)
}

// FindByValue looks a token up by its exact value, optionally filtered by
// type. Validity is not checked.
func (s *Service) FindByValue(ctx context.Context, value string, tokenType ...string) (*TemporaryToken, error) {
	token, err := s.store.FindByValue(ctx, value, optionalType(tokenType))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			if s.logger != nil {
				s.logger.Debug("temporary token not found")
			}
			return nil, err
		}
		if s.logger != nil {
			s.logger.Error("temporary token lookup failed", zap.Error(err))
		}
		return nil, err
	}

	return token, nil
}

// FindValid looks a token up by value and optional type, restricted to
// tokens that are currently valid. The predicate is evaluated by the storage
// engine at query time, so a token exhausted or expired between fetches is
// not returned.
func (s *Service) FindValid(ctx context.Context, value string, tokenType ...string) (*TemporaryToken, error) {
	token, err := s.store.FindValid(ctx, value, optionalType(tokenType))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			if s.logger != nil {
				s.logger.Debug("no valid temporary token for value")
			}
			return nil, err
		}
		if s.logger != nil {
			s.logger.Error("valid token lookup failed", zap.Error(err))
		}
		return nil, err
	}

	return token, nil
}

// Use records one usage of the token through an atomic increment and returns
// the updated record. Incrementing past the limit is permitted; callers
// enforce acceptance through IsValid or FindValid.
func (s *Service) Use(ctx context.Context, token *TemporaryToken) (*TemporaryToken, error) {
	updated, err := s.store.IncrementUsage(ctx, token.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to record token usage",
				zap.Error(err),
				zap.String("token_id", token.ID.String()))
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Debug("token usage recorded",
			zap.String("token_id", updated.ID.String()),
			zap.Int("usage_count", updated.UsageCount))
	}

	return updated, nil
}

// MarkAsExpired force-expires the token immediately. Safe to call on an
// already expired token.
func (s *Service) MarkAsExpired(ctx context.Context, token *TemporaryToken) (*TemporaryToken, error) {
	updated, err := s.store.MarkExpired(ctx, token.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to mark token as expired",
				zap.Error(err),
				zap.String("token_id", token.ID.String()))
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("token marked as expired",
			zap.String("token_id", updated.ID.String()))
	}

	return updated, nil
}

// TokensFor returns every token bound to the given owner, oldest first.
func (s *Service) TokensFor(ctx context.Context, owner Tokenable) ([]TemporaryToken, error) {
	found, err := s.store.FindForOwner(ctx, owner.TokenableType(), owner.TokenableID())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to list owner tokens",
				zap.Error(err),
				zap.String("owner_type", owner.TokenableType()),
				zap.String("owner_id", owner.TokenableID()))
		}
		return nil, err
	}

	return found, nil
}

// PruneExpired deletes tokens that expired more than retentionHours ago and
// returns the number deleted. A non-positive retentionHours falls back to
// the configured retention window. Re-running immediately finds nothing more
// to delete.
func (s *Service) PruneExpired(ctx context.Context, retentionHours int) (int64, error) {
	if retentionHours <= 0 {
		retentionHours = s.config.Tokens.PruneExpiredAfterHours
	}

	cutoff := time.Now().Add(-time.Duration(retentionHours) * time.Hour)

	deleted, err := s.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to prune expired tokens",
				zap.Error(err),
				zap.Int("retention_hours", retentionHours))
		}
		return 0, err
	}

	if s.logger != nil {
		if deleted > 0 {
			s.logger.Info("pruned expired tokens",
				zap.Int64("count", deleted),
				zap.Int("retention_hours", retentionHours))
		} else {
			s.logger.Debug("no expired tokens to prune",
				zap.Int("retention_hours", retentionHours))
		}
	}

	return deleted, nil
}

func optionalType(tokenType []string) *string {
	if len(tokenType) == 0 {
		return nil
	}
	return &tokenType[0]
}
