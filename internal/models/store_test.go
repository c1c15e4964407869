package models

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/Xczer/docsee-gui/internal/db"
)

func openTestBolt(t *testing.T) *bolt.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

// --- UserStore ---

func TestUserStoreCreateOwnerAndFind(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestBolt(t))

	user, err := store.CreateOwner("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "password123", user.Password, "only the hash is stored")

	found, err := store.FindByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	byID, err := store.FindByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)

	missing, err := store.FindByUsername("bob")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = store.FindByID(99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserStoreSingleOwner(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestBolt(t))

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.CreateOwner("alice", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = store.CreateOwner("alice", "password123")
	require.NoError(t, err)

	_, err = store.CreateOwner("bob", "password456")
	assert.ErrorIs(t, err, ErrAlreadySetUp)

	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserStoreConcurrentSetup(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestBolt(t))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.CreateOwner("admin", "password123")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadySetUp)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestUserStoreAuthenticate(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestBolt(t))
	_, err := store.CreateOwner("alice", "password123")
	require.NoError(t, err)

	u, err := store.Authenticate("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	for _, tc := range [][2]string{{"alice", "wrong"}, {"bob", "password123"}, {"", "password123"}, {"alice", ""}} {
		_, err := store.Authenticate(tc[0], tc[1])
		assert.ErrorIs(t, err, ErrBadCredentials, "%v", tc)
	}
}

func TestUserStoreChangePasswordInvalidatesTokens(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestBolt(t))
	secret := "secret"

	user, err := store.CreateOwner("alice", "oldpass1")
	require.NoError(t, err)
	token, err := CreateJWT(user, secret)
	require.NoError(t, err)

	got, err := store.UserForToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	assert.ErrorIs(t, store.ChangePassword(user.ID, "wrong", "newpass1"), ErrBadCredentials)
	assert.ErrorIs(t, store.ChangePassword(user.ID, "oldpass1", "tiny"), ErrWeakPassword)
	require.NoError(t, store.ChangePassword(user.ID, "oldpass1", "newpass1"))

	_, err = store.UserForToken(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = store.Authenticate("alice", "oldpass1")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = store.Authenticate("alice", "newpass1")
	assert.NoError(t, err)

	assert.Error(t, store.ChangePassword(42, "x", "newpass1"))
}

// --- SettingStore ---

func TestSettingStoreGetSet(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestBolt(t))

	val, err := store.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, store.Set("k", "v1"))
	require.NoError(t, store.Set("k", "v2"))
	val, err = store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", val)
}

func TestSettingStoreEnsureJWTSecret(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestBolt(t))

	first, err := store.EnsureJWTSecret()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := store.EnsureJWTSecret()
	require.NoError(t, err)
	assert.Equal(t, first, second, "the secret is generated once")
}

func TestSettingStoreAppDefaults(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestBolt(t))

	s, err := store.App()
	require.NoError(t, err)
	assert.Equal(t, DefaultAppSettings(), s)
	assert.NoError(t, s.Validate())
}

func TestSettingStoreSaveApp(t *testing.T) {
	t.Parallel()
	database := openTestBolt(t)
	store := NewSettingStore(database)
	store.now = func() time.Time { return time.UnixMilli(1_700_000_000_123) }

	s := DefaultAppSettings()
	s.Docker.Host = "tcp://10.0.0.5:2375"
	s.Application.Theme = "dark"
	s.Resources.MaxContainerLogs = 250

	saved, err := store.SaveApp(s)
	require.NoError(t, err)
	assert.EqualValues(t, 1_700_000_000_123, saved.LastModified)

	// a fresh store reads it back from disk
	reloaded, err := NewSettingStore(database).App()
	require.NoError(t, err)
	assert.Equal(t, saved, reloaded)

	s.Application.Theme = "purple"
	_, err = store.SaveApp(s)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	cur, err := store.App()
	require.NoError(t, err)
	assert.Equal(t, "dark", cur.Application.Theme, "rejected settings are not stored")

	reset, err := store.ResetApp()
	require.NoError(t, err)
	assert.Empty(t, reset.Docker.Host)
	assert.Equal(t, 1000, reset.Resources.MaxContainerLogs)
}

func TestSettingStoreAppMergesDefaults(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestBolt(t))

	// a record written by an older version that lacks most fields
	require.NoError(t, store.Set(keyAppSettings, `{"application":{"theme":"light"}}`))

	s, err := store.App()
	require.NoError(t, err)
	assert.Equal(t, "light", s.Application.Theme)
	assert.Equal(t, 5000, s.Application.AutoRefreshInterval)
	assert.Equal(t, 1000, s.Resources.MaxContainerLogs)
	assert.Equal(t, SettingsVersion, s.Version)
}

func TestSettingStoreAppCorrupt(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestBolt(t))
	require.NoError(t, store.Set(keyAppSettings, `{not json`))

	_, err := store.App()
	assert.Error(t, err)
}
