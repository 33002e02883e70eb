package vault

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/client/migrations"
	"github.com/dmitrijs2005/aliasvault/internal/client/models"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

func sample(rev int64) *models.LocalVault {
	return &models.LocalVault{
		Username:           "alice",
		RevisionNumber:     rev,
		Blob:               "ciphertext",
		Version:            "1.0.0",
		Salt:               "aa",
		EncryptionType:     "Argon2Id",
		EncryptionSettings: `{"Iterations":1}`,
		UpdatedAt:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSaveAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	want := sample(3)
	require.NoError(t, r.Save(ctx, want))

	got, err := r.Get(ctx, "alice")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("vault mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_NewerRevisionWins(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, sample(5)))

	older := sample(4)
	older.Blob = "stale"
	require.NoError(t, r.Save(ctx, older))

	got, err := r.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(5), got.RevisionNumber)
	require.Equal(t, "ciphertext", got.Blob)

	newer := sample(6)
	newer.Blob = "fresh"
	require.NoError(t, r.Save(ctx, newer))

	got, err = r.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "fresh", got.Blob)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, sample(1)))
	require.NoError(t, r.Delete(ctx, "alice"))

	_, err := r.Get(ctx, "alice")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
