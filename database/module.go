package database

import (
	"github.com/daniyousefifar/temptokens/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

func ProvideDatabaseFx(cfg *config.Config) (*gorm.DB, error) {
	return ProvideDatabase(*cfg)
}
