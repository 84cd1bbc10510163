package store

import (
	"testing"

	"unihub/internal/localstate"
	"unihub/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Chat{}, &models.Message{}))
	return db
}

func openTestLocal(t *testing.T) *localstate.Store {
	t.Helper()

	local, err := localstate.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	return local
}
