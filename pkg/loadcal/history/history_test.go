package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testResult() json.RawMessage {
	return json.RawMessage(`{"hash_size":1048576,"max_request_rate":2000}`)
}

func TestAppendAndGet(t *testing.T) {
	store := openTestStore(t)

	rec := &Record{
		Kind:    "params",
		Props:   []string{"balloon=1073741824"},
		Result:  testResult(),
		Elapsed: 3 * time.Second,
	}
	id, err := store.Append(rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, rec.Timestamp.IsZero())

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "params", got.Kind)
	assert.Equal(t, []string{"balloon=1073741824"}, got.Props)
	assert.JSONEq(t, string(testResult()), string(got.Result))
	assert.Equal(t, 3*time.Second, got.Elapsed)
}

func TestGetNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := range 3 {
		_, err := store.Append(&Record{
			ID:        string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Kind:      "params",
			Result:    testResult(),
		})
		require.NoError(t, err)
	}

	records, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "a", records[2].ID)
}

func TestListLimit(t *testing.T) {
	store := openTestStore(t)

	for range 5 {
		_, err := store.Append(&Record{Kind: "params", Result: testResult()})
		require.NoError(t, err)
	}

	records, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestListEmpty(t *testing.T) {
	store := openTestStore(t)

	records, err := store.List(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClean(t *testing.T) {
	store := openTestStore(t)

	old := &Record{
		ID:        "old",
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
		Kind:      "params",
		Result:    testResult(),
	}
	fresh := &Record{
		ID:     "fresh",
		Kind:   "params",
		Result: testResult(),
	}
	_, err := store.Append(old)
	require.NoError(t, err)
	_, err = store.Append(fresh)
	require.NoError(t, err)

	deleted, err := store.Clean(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.Get("old")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := store.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.ID)
}

func TestRecordKeyRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	key := recordKey(ts, "some-id")

	gotTS, gotID, ok := parseRecordKey(key)
	require.True(t, ok)
	assert.True(t, ts.Equal(gotTS))
	assert.Equal(t, "some-id", gotID)
}
