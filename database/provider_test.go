package database

import (
	"testing"

	"github.com/daniyousefifar/temptokens/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideDatabase_Sqlite(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}

	db, err := ProvideDatabase(cfg)

	require.NoError(t, err)
	require.NotNil(t, db)
	assert.True(t, db.Config.TranslateError)
}

func TestProvideDatabase_UnsupportedDriver(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver: "oracle",
			DSN:    "whatever",
		},
	}

	db, err := ProvideDatabase(cfg)

	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
