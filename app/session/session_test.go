package session

import (
	"path/filepath"
	"testing"
	"time"

	"demo-engine/app/database"
	"demo-engine/app/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get()
	assert.False(t, ok, "empty at startup")

	require.NoError(t, s.Set(model.Credential{AccessToken: "a1", RefreshToken: "r1"}))
	cred, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, "a1", cred.AccessToken)

	// last writer wins
	require.NoError(t, s.Set(model.Credential{AccessToken: "a2"}))
	cred, _ = s.Get()
	assert.Equal(t, "a2", cred.AccessToken)
	assert.Empty(t, cred.RefreshToken)

	require.NoError(t, s.Clear())
	_, ok = s.Get()
	assert.False(t, ok)
}

func TestDBStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := NewDBStore(openDB(t, path))
	require.NoError(t, err)
	_, ok := s.Get()
	assert.False(t, ok)

	require.NoError(t, s.Set(model.Credential{AccessToken: "access", RefreshToken: "refresh"}))
	require.NoError(t, s.Set(model.Credential{AccessToken: "access-2", RefreshToken: "refresh-2"}))

	reopened, err := NewDBStore(openDB(t, path))
	require.NoError(t, err)
	cred, ok := reopened.Get()
	require.True(t, ok)
	assert.Equal(t, model.Credential{AccessToken: "access-2", RefreshToken: "refresh-2"}, cred)

	require.NoError(t, reopened.Clear())
	again, err := NewDBStore(openDB(t, path))
	require.NoError(t, err)
	_, ok = again.Get()
	assert.False(t, ok)
}

func TestDBStoreDropsRefreshToken(t *testing.T) {
	db := openDB(t, filepath.Join(t.TempDir(), "session.db"))
	s, err := NewDBStore(db)
	require.NoError(t, err)

	require.NoError(t, s.Set(model.Credential{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.Set(model.Credential{AccessToken: "b"}))

	refresh, err := getSetting(db, model.KeyRefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refresh)
}

func TestPreferenceStore(t *testing.T) {
	s := NewPreferenceStore(openDB(t, filepath.Join(t.TempDir(), "prefs.db")))

	prefs, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, model.GenerateOptions{Language: "en", Quality: "hd", Voice: "default"}, prefs.Options)

	prefs.Options.Voice = "female-nigerian"
	require.NoError(t, s.Save(prefs))
	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "female-nigerian", loaded.Options.Voice)
}

func TestRecentQueries(t *testing.T) {
	s := NewPreferenceStore(openDB(t, filepath.Join(t.TempDir(), "prefs.db")))

	for i := 0; i < MaxRecentQueries+3; i++ {
		require.NoError(t, s.AddRecentQuery(string(rune('a'+i))))
	}
	require.NoError(t, s.AddRecentQuery("e"))
	require.NoError(t, s.AddRecentQuery("   "))

	queries, err := s.RecentQueries()
	require.NoError(t, err)
	require.Len(t, queries, MaxRecentQueries)
	assert.Equal(t, "e", queries[0])
	assert.Equal(t, "m", queries[1])
	assert.NotContains(t, queries, "a")
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-42",
		"email": "ada@example.com",
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString([]byte("server-secret"))
	require.NoError(t, err)

	info, err := InspectToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", info.Subject)
	assert.Equal(t, "ada@example.com", info.Email)
	assert.True(t, info.ExpiresAt.Equal(exp))

	_, err = InspectToken("")
	assert.Error(t, err)
	_, err = InspectToken("not-a-jwt")
	assert.Error(t, err)
}
