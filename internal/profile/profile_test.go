package profile_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in      string
		want    profile.Operator
		wantErr bool
	}{
		{"", profile.OperatorOr, false},
		{"or", profile.OperatorOr, false},
		{" And ", profile.OperatorAnd, false},
		{"XOR", "", true},
	}
	for _, tt := range tests {
		got, err := profile.ParseOperator(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, profile.ErrInvalid, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestProfileNormalize(t *testing.T) {
	p, err := profile.Profile{
		UserID:   "u1",
		Keywords: []string{" banjir ", "", "banjir", "jakarta"},
		Operator: "and",
	}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"banjir", "jakarta"}, p.Keywords)
	assert.Equal(t, profile.OperatorAnd, p.Operator)

	err = profile.Profile{UserID: "u1", Keywords: []string{"a", "b", "c", "d"}}.Validate()
	assert.ErrorIs(t, err, profile.ErrInvalid)

	err = profile.Profile{UserID: "u1", Keywords: []string{"  "}}.Validate()
	assert.ErrorIs(t, err, profile.ErrInvalid)

	err = profile.Profile{Keywords: []string{"x"}}.Validate()
	assert.ErrorIs(t, err, profile.ErrInvalid)
}

func TestStatic(t *testing.T) {
	s := profile.Static{"u1": {UserID: "u1", Keywords: []string{"pemilu"}, Operator: profile.OperatorOr}}

	p, err := s.GetUserKeywords(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pemilu"}, p.Keywords)

	_, err = s.GetUserKeywords(context.Background(), "nobody")
	assert.ErrorIs(t, err, profile.ErrNotFound)

	var empty profile.Static
	_, err = empty.GetUserKeywords(context.Background(), "u1")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func openSQLite(t *testing.T) *profile.SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.db")
	store, err := profile.OpenSQL(context.Background(), profile.DialectSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	_, err := store.GetUserKeywords(ctx, "u1")
	require.ErrorIs(t, err, profile.ErrNotFound)

	saved, err := store.SetKeywords(ctx, profile.Profile{
		UserID:   "u1",
		Keywords: []string{"banjir", "jakarta"},
		Operator: "and",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"banjir", "jakarta"}, saved.Keywords)
	assert.Equal(t, profile.OperatorAnd, saved.Operator)
	assert.False(t, saved.CreatedAt.IsZero())

	updated, err := store.SetKeywords(ctx, profile.Profile{UserID: "u1", Keywords: []string{"gempa"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gempa"}, updated.Keywords)
	assert.Equal(t, profile.OperatorOr, updated.Operator)
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt, "upsert keeps creation time")

	require.NoError(t, store.DeleteKeywords(ctx, "u1"))
	assert.ErrorIs(t, store.DeleteKeywords(ctx, "u1"), profile.ErrNotFound)
	_, err = store.GetUserKeywords(ctx, "u1")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestSQLStoreRejectsInvalid(t *testing.T) {
	store := openSQLite(t)
	_, err := store.SetKeywords(context.Background(), profile.Profile{UserID: "u1", Keywords: []string{"a", "b", "c", "d"}})
	assert.ErrorIs(t, err, profile.ErrInvalid)
}

func TestSQLStoreSchemaIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")
	for i := 0; i < 3; i++ {
		store, err := profile.OpenSQL(context.Background(), profile.DialectSQLite, path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, store.Close())
	}
}

func TestOpenSQLUnknownDialect(t *testing.T) {
	_, err := profile.OpenSQL(context.Background(), "mysql", "")
	assert.Error(t, err)
}
