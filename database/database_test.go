package database

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"lmscert/config"
	"lmscert/models"
	"lmscert/services"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"})
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestMigrateAndSeed(t *testing.T) {
	db, err := Open(&config.Config{DBDriver: "sqlite", DBDSN: filepath.Join(t.TempDir(), "cert.db")})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	ctx := context.Background()
	require.NoError(t, Seed(ctx, db))

	var prefix models.Setting
	require.NoError(t, db.Where("setting_key = ?", services.SettingCertPrefix).Take(&prefix).Error)
	assert.Equal(t, "OFSHDG", prefix.Value)

	// A second seed keeps values an administrator changed.
	require.NoError(t, db.Model(&models.Setting{}).
		Where("setting_key = ?", services.SettingCertPrefix).
		Update("setting_value", "ACME").Error)
	require.NoError(t, Seed(ctx, db))

	require.NoError(t, db.Where("setting_key = ?", services.SettingCertPrefix).Take(&prefix).Error)
	assert.Equal(t, "ACME", prefix.Value)

	var count int64
	require.NoError(t, db.Model(&models.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(len(services.DefaultSettings)), count)
}

func TestGormLoggerSkipsMissingRows(t *testing.T) {
	var out bytes.Buffer
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "log.db")), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(&out),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	var s models.Setting
	err = db.Where("setting_key = ?", "missing").Take(&s).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotContains(t, out.String(), "record not found")

	err = db.Table("no_such_table").Take(&s).Error
	require.Error(t, err)
	assert.Contains(t, out.String(), "no_such_table")
}
