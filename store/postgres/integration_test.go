//go:build integration

package postgres

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("accounts"),
		tcpostgres.WithUsername("account"),
		tcpostgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn, PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	return New(db)
}

func TestPostgresStoreLifecycle(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	u, err := s.InsertUser(ctx, identity.CreateUserInput{
		Username: "db303", Email: "acid@house.net", PasswordHash: "hash", Status: identity.StatusPending,
	})
	require.NoError(t, err)

	_, err = s.InsertUser(ctx, identity.CreateUserInput{Username: "db303", Email: "other@house.net", PasswordHash: "h"})
	assert.ErrorIs(t, err, identity.ErrDuplicate)
	_, err = s.InsertUser(ctx, identity.CreateUserInput{Username: "db404", Email: "ACID@house.net", PasswordHash: "h"})
	assert.ErrorIs(t, err, identity.ErrDuplicate)

	byEmail, err := s.FindUserByEmail(ctx, "Acid@House.net")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, byEmail.UserID)

	_, err = s.FindUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, identity.ErrNotFound)

	first := sha256.Sum256([]byte("first"))
	second := sha256.Sum256([]byte("second"))
	require.NoError(t, s.UpsertLiveToken(ctx, identity.PurposeReset, u.UserID, first, time.Now()))
	require.NoError(t, s.UpsertLiveToken(ctx, identity.PurposeReset, u.UserID, second, time.Now()))

	_, _, err = s.ConsumeToken(ctx, first, identity.PurposeReset)
	assert.ErrorIs(t, err, identity.ErrNotFound)

	owner, _, err := s.ConsumeToken(ctx, second, identity.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, owner)

	require.NoError(t, s.UpdateStatus(ctx, u.UserID, identity.StatusActive))
	got, err := s.FindUserByEmail(ctx, "acid@house.net")
	require.NoError(t, err)
	assert.Equal(t, identity.StatusActive, got.Status)
}
