package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/clipvault/clipvault/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func textRow(id, text, hash string, createdAt int64) *types.Row {
	return &types.Row{
		ID:          id,
		Type:        string(types.TypeText),
		CreatedAt:   createdAt,
		ContentHash: hash,
		PlainText:   text,
	}
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()

	require.NoError(t, s.Insert(textRow("a", "hello", "h1", now)))

	row, err := s.GetByID("a")
	require.NoError(t, err)
	assert.Equal(t, "hello", row.PlainText)
	assert.Equal(t, now, row.CreatedAt)

	_, err = s.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertValidation(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.Insert(&types.Row{ID: "a"}), ErrMissingFields)
	assert.ErrorIs(t, s.Insert(textRow("", "x", "h", 1)), ErrMissingFields)
	assert.ErrorIs(t, s.Insert(textRow("a", "x", "", 1)), ErrMissingFields)

	bad := textRow("a", "x", "h", 1)
	bad.Type = "mystery"
	assert.ErrorIs(t, s.Insert(bad), ErrMissingFields)
}

func TestQueryOrderingAndPagination(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(textRow(
			string(rune('a'+i)), "item", "h"+string(rune('0'+i)), base+int64(i))))
	}

	// Default: newest first.
	rows, err := s.Query(Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "e", rows[0].ID)
	assert.Equal(t, "a", rows[4].ID)

	// Ascending with limit+offset.
	rows, err = s.Query(Filter{Ascending: true, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, "c", rows[1].ID)

	// Offset past the end.
	rows, err = s.Query(Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryFlagFilters(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()

	pinnedRow := textRow("p", "pinned", "h1", now)
	pinnedRow.Pinned = true
	require.NoError(t, s.Insert(pinnedRow))

	trashedRow := textRow("t", "trashed", "h2", now+1)
	trashedRow.Deleted = true
	require.NoError(t, s.Insert(trashedRow))

	require.NoError(t, s.Insert(textRow("n", "normal", "h3", now+2)))

	live, err := s.Query(Live())
	require.NoError(t, err)
	assert.Len(t, live, 2)

	trashed, err := s.Query(Trashed())
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, "t", trashed[0].ID)

	pinned := true
	filter := Live()
	filter.Pinned = &pinned
	rows, err := s.Query(filter)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p", rows[0].ID)

	count, err := s.Count(Live())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()

	require.NoError(t, s.Insert(textRow("1", "Meeting notes for Tuesday", "h1", now)))
	require.NoError(t, s.Insert(textRow("2", "groceries", "h2", now+1)))

	fileRow := &types.Row{
		ID:          "3",
		Type:        string(types.TypeFile),
		CreatedAt:   now + 2,
		ContentHash: "h3",
		FilePaths:   []string{"/Users/sam/Documents/notes.pdf"},
		FileCount:   1,
	}
	require.NoError(t, s.Insert(fileRow))

	rows, err := s.Search("NOTES", Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2) // matches plain text and file path

	rows, err = s.Search("tuesday", Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID)

	rows, err = s.Search("nothing here", Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateWhitelist(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()
	require.NoError(t, s.Insert(textRow("a", "original", "h1", now)))

	affected, err := s.Update("a", Fields{
		"pinned":     true,
		"plain_text": "edited",
		"id":         "sneaky",  // not mutable, dropped
		"type":       "image",   // not mutable, dropped
		"pinned2":    "unknown", // unknown, dropped
	})
	require.NoError(t, err)
	assert.True(t, affected)

	row, err := s.GetByID("a")
	require.NoError(t, err)
	assert.True(t, row.Pinned)
	assert.Equal(t, "edited", row.PlainText)
	assert.Equal(t, string(types.TypeText), row.Type)

	affected, err = s.Update("missing", Fields{"pinned": true})
	require.NoError(t, err)
	assert.False(t, affected)
}

func TestExistsByHashTracksDeletion(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()
	require.NoError(t, s.Insert(textRow("a", "x", "h1", now)))

	id, ok, err := s.ExistsByHash("h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	// Trashing releases the hash.
	_, err = s.Update("a", Fields{"deleted": true})
	require.NoError(t, err)
	_, ok, err = s.ExistsByHash("h1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Restoring claims it again.
	_, err = s.Update("a", Fields{"deleted": false})
	require.NoError(t, err)
	id, ok, err = s.ExistsByHash("h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	_, ok, err = s.ExistsByHash("unseen")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreNeverStealsHashIndexEntry(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()

	trashed := textRow("old", "dup", "h1", now)
	trashed.Deleted = true
	require.NoError(t, s.Insert(trashed))
	require.NoError(t, s.Insert(textRow("new", "dup", "h1", now+1)))

	// Flipping the trashed row live must leave the index pointing at
	// the row that already owns the hash.
	_, err := s.Update("old", Fields{"deleted": false})
	require.NoError(t, err)

	id, ok, err := s.ExistsByHash("h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", id)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()
	require.NoError(t, s.Insert(textRow("a", "x", "h1", now)))
	require.NoError(t, s.Insert(textRow("b", "y", "h2", now+1)))

	deleted, err := s.Delete([]string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = s.GetByID("a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Hash index entries went with the rows.
	_, ok, err := s.ExistsByHash("h1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchemaVersionPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(Config{DBPath: path})
	require.NoError(t, err)
	version, err := s.readSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
	require.NoError(t, s.Close())

	// Reopen: no migration needed, version unchanged.
	s, err = Open(Config{DBPath: path})
	require.NoError(t, err)
	version, err = s.readSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
	require.NoError(t, s.Close())
}

func TestMigrationFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(Config{DBPath: path})
	require.NoError(t, err)
	now := time.Now().UnixMilli()
	require.NoError(t, s.Insert(textRow("live", "x", "h1", now)))

	trashed := textRow("gone", "y", "h2", now+1)
	trashed.Deleted = true
	require.NoError(t, s.Insert(trashed))

	multi := &types.Row{
		ID:          "files",
		Type:        string(types.TypeMultiFile),
		CreatedAt:   now + 2,
		ContentHash: "h3",
		FilePaths:   []string{"/a.png", "/b.png"},
	}
	require.NoError(t, s.Insert(multi))

	// Downgrade the recorded version to force the migrations on the
	// next open.
	require.NoError(t, s.writeSchemaVersion(1))
	require.NoError(t, s.Close())

	s, err = Open(Config{DBPath: path})
	require.NoError(t, err)
	defer s.Close()

	version, err := s.readSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)

	// v2: index rebuilt from live rows only.
	id, ok, err := s.ExistsByHash("h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "live", id)
	_, ok, err = s.ExistsByHash("h2")
	require.NoError(t, err)
	assert.False(t, ok)

	// v3: derived file metadata backfilled.
	row, err := s.GetByID("files")
	require.NoError(t, err)
	assert.Equal(t, 2, row.FileCount)
	assert.True(t, row.AllImages)
}
