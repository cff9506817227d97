package credstore

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twigate/twigate/internal/boot"
	"github.com/twigate/twigate/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	config := &boot.Config{DataDir: t.TempDir()}
	store, err := New(config)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store
}

func TestLoadAbsent(t *testing.T) {
	assert := assert.New(t)

	store := testStore(t)
	_, err := store.Load()
	assert.ErrorIs(err, model.ErrorNoSession)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	assert := assert.New(t)

	store := testStore(t)
	blob := []byte(`{"auth_token":"abc","ct0":"def"}`)

	assert.Nil(store.Save(blob))

	loaded, err := store.Load()
	assert.Nil(err)
	assert.Equal(blob, loaded)
}

func TestSaveOverwrites(t *testing.T) {
	assert := assert.New(t)

	store := testStore(t)
	assert.Nil(store.Save([]byte(`{"auth_token":"old"}`)))
	assert.Nil(store.Save([]byte(`{"auth_token":"new"}`)))

	loaded, err := store.Load()
	assert.Nil(err)
	assert.Equal([]byte(`{"auth_token":"new"}`), loaded)
}

func TestEmptyBlobTreatedAsAbsent(t *testing.T) {
	assert := assert.New(t)

	store := testStore(t)
	assert.Nil(os.WriteFile(store.Path(), nil, 0o644))

	_, err := store.Load()
	assert.ErrorIs(err, model.ErrorNoSession)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	assert := assert.New(t)

	store := testStore(t)
	assert.Nil(store.Save([]byte(`{"auth_token":"abc"}`)))

	entries, err := os.ReadDir(path.Dir(store.Path()))
	assert.Nil(err)
	for _, entry := range entries {
		assert.False(strings.HasPrefix(entry.Name(), ".cookies-"), "leftover temp file %s", entry.Name())
	}
}
