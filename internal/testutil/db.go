// Package testutil wires an in-memory database and request helpers for package tests.
package testutil

import (
	"fmt"
	"testing"

	"pawnbook-service/pkg/config"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/jwtutil"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database, migrates it and installs it as the global DB
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(conn))
	database.SetDB(conn)
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	t.Cleanup(func() {
		database.SetDB(nil)
		_ = sqlDB.Close()
	})
	return conn
}
