package tokens

import (
	"fmt"

	"github.com/daniyousefifar/temptokens/config"
	"github.com/daniyousefifar/temptokens/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideTokenService(db *gorm.DB, cfg *config.Config, logger *logging.Service) (*Service, error) {
	store := NewGormStore(db, cfg.Tokens.TableName)

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate token table: %w", err)
		}
	}

	return NewServiceWithStore(store, cfg, logger), nil
}

var Module = fx.Options(
	fx.Provide(ProvideTokenService),
)
