// Package temptokens issues, tracks and validates short-lived, limited-use
// tokens such as numeric OTP codes and password-reset tokens, optionally
// bound to an owning entity.
package temptokens

import (
	"github.com/daniyousefifar/temptokens/config"
	"github.com/daniyousefifar/temptokens/database"
	"github.com/daniyousefifar/temptokens/services/logging"
	"github.com/daniyousefifar/temptokens/tokens"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type (
	Service        = tokens.Service
	TemporaryToken = tokens.TemporaryToken
	TokenBuilder   = tokens.TokenBuilder
	Tokenable      = tokens.Tokenable
	Owner          = tokens.Owner
	Config         = config.Config
)

// New returns a token service on an existing database connection.
func New(db *gorm.DB, cfg *config.Config, logger *logging.Service) *Service {
	return tokens.NewService(db, cfg, logger)
}

// Options composes the package's fx modules for applications that assemble
// their dependency graph with fx. A nil cfg loads configuration from the
// environment.
func Options(cfg *config.Config) fx.Option {
	return fx.Options(
		config.NewProvider(cfg),
		logging.Module,
		database.Module,
		tokens.Module,
	)
}
