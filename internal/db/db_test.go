package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestOpenCreatesBuckets(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "data")

	database, err := Open(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, FileName))

	require.NoError(t, database.View(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{BucketSettings, BucketUsers, BucketUsersByID} {
			assert.NotNil(t, tx.Bucket(name), string(name))
		}
		return nil
	}))
	require.NoError(t, database.Close())

	// reopening keeps the file usable
	database, err = Open(dir)
	require.NoError(t, err)
	require.NoError(t, database.Close())
}

func TestOpenRejectsFileAsDir(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := Open(file)
	assert.ErrorContains(t, err, "create data dir")
}
