package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/internal/index"
)

func TestUniqueIndex_RejectsDuplicateAgainstExisting(t *testing.T) {
	idx := index.NewUniqueIndex([]int{0})

	ok := idx.Insert([]index.Key{"a"}, []int64{1})
	require.True(t, ok)

	ok = idx.Insert([]index.Key{"a"}, []int64{2})
	assert.False(t, ok, "a second insert of the same key should be rejected")
}

func TestUniqueIndex_RejectsIntraBatchDuplicate(t *testing.T) {
	idx := index.NewUniqueIndex([]int{0})

	ok := idx.Insert([]index.Key{"a", "a"}, []int64{1, 2})
	assert.False(t, ok, "two identical keys in one batch should be rejected")

	entries := 0
	idx.Scan(func(index.Key, int64) bool { entries++; return true })
	assert.Zero(t, entries, "a rejected batch must leave the index untouched")
}

func TestUniqueIndex_RemoveIsIdempotent(t *testing.T) {
	idx := index.NewUniqueIndex([]int{0})
	require.True(t, idx.Insert([]index.Key{"a"}, []int64{1}))

	idx.Remove([]index.Key{"a"}, []int64{1})
	idx.Remove([]index.Key{"a"}, []int64{1})

	ok := idx.Insert([]index.Key{"a"}, []int64{2})
	assert.True(t, ok, "removed key should be insertable again")
}

func TestEncodeKey_NullColumnNeverMatches(t *testing.T) {
	row := column.Row{nil, "x"}
	_, present := index.EncodeKey(row, []int{0})
	assert.False(t, present, "a NULL indexed column must never produce a comparable key")
}

func TestNewFromDescriptors_SkipsNonUnique(t *testing.T) {
	out := index.NewFromDescriptors([]index.Descriptor{
		{Name: "pk", ColumnIDs: []int{0}, IsUnique: true},
		{Name: "secondary", ColumnIDs: []int{1}, IsUnique: false},
	})
	assert.Len(t, out, 1)
}
