package oplog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twigate/twigate/internal/boot"
	"github.com/twigate/twigate/internal/model"
)

func entryAt(id string, createdAt time.Time) *model.LogEntry {
	return &model.LogEntry{
		ID:        id,
		TweetID:   "123",
		Text:      "hello",
		Status:    model.LogStatusSuccess,
		Attempts:  1,
		CreatedAt: createdAt,
	}
}

func TestAppendAndRecent(t *testing.T) {
	assert := assert.New(t)

	config := &boot.Config{DataDir: t.TempDir()}
	opLog, err := Open(config)
	assert.Nil(err)
	defer opLog.Close()

	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Nil(opLog.Append(entryAt("a", base)))
	assert.Nil(opLog.Append(entryAt("b", base.Add(time.Minute))))
	assert.Nil(opLog.Append(entryAt("c", base.Add(2*time.Minute))))

	t.Run("most recent first", func(t *testing.T) {
		entries, err := opLog.Recent(10)
		assert.Nil(err)
		assert.Len(entries, 3)
		assert.Equal("c", entries[0].ID)
		assert.Equal("b", entries[1].ID)
		assert.Equal("a", entries[2].ID)
	})

	t.Run("limit applies", func(t *testing.T) {
		entries, err := opLog.Recent(2)
		assert.Nil(err)
		assert.Len(entries, 2)
		assert.Equal("c", entries[0].ID)
	})

	t.Run("zero limit falls back to default", func(t *testing.T) {
		entries, err := opLog.Recent(0)
		assert.Nil(err)
		assert.Len(entries, 3)
	})
}

func TestFailedEntryRoundTrip(t *testing.T) {
	assert := assert.New(t)

	config := &boot.Config{DataDir: t.TempDir()}
	opLog, err := Open(config)
	assert.Nil(err)
	defer opLog.Close()

	entry := &model.LogEntry{
		ID:           "x",
		Text:         "hello",
		Status:       model.LogStatusFailed,
		Attempts:     3,
		ErrorMessage: "rate limited",
		CreatedAt:    time.Now().UTC(),
	}
	assert.Nil(opLog.Append(entry))

	entries, err := opLog.Recent(1)
	assert.Nil(err)
	assert.Len(entries, 1)
	assert.Equal(model.LogStatusFailed, entries[0].Status)
	assert.Equal(3, entries[0].Attempts)
	assert.Equal("rate limited", entries[0].ErrorMessage)
	assert.Empty(entries[0].TweetID)
}

func TestSurvivesReopen(t *testing.T) {
	assert := assert.New(t)

	config := &boot.Config{DataDir: t.TempDir()}
	opLog, err := Open(config)
	assert.Nil(err)
	assert.Nil(opLog.Append(entryAt("a", time.Now().UTC())))
	assert.Nil(opLog.Close())

	reopened, err := Open(config)
	assert.Nil(err)
	defer reopened.Close()

	entries, err := reopened.Recent(10)
	assert.Nil(err)
	assert.Len(entries, 1)
	assert.Equal("a", entries[0].ID)
}

func TestDuplicateIDRejected(t *testing.T) {
	assert := assert.New(t)

	config := &boot.Config{DataDir: t.TempDir()}
	opLog, err := Open(config)
	assert.Nil(err)
	defer opLog.Close()

	assert.Nil(opLog.Append(entryAt("a", time.Now().UTC())))
	err = opLog.Append(entryAt("a", time.Now().UTC()))
	assert.ErrorIs(err, model.ErrorStorage)
}
