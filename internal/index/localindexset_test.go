package index_test

import (
	"testing"

	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/internal/index"
)

func TestLocalIndexSet_Append_UnwindsOnConflict(t *testing.T) {
	set := index.NewLocalIndexSet([]index.Descriptor{
		{Name: "pk", ColumnIDs: []int{0}, IsUnique: true},
		{Name: "email", ColumnIDs: []int{1}, IsUnique: true},
	})

	rows := []column.Row{{int64(1), "a@example.com"}, {int64(2), "a@example.com"}}
	if err := set.Append(rows, 100); err == nil {
		t.Fatal("expected a unique constraint violation on the duplicate email")
	}

	// The pk index accepted the batch before the email index rejected it;
	// Append must have unwound those entries too.
	pk := set.Indexes()[0]
	count := 0
	pk.Scan(func(index.Key, int64) bool { count++; return true })
	if count != 0 {
		t.Fatalf("pk index has %d leftover entries after a rejected batch, want 0", count)
	}
}

func TestLocalIndexSet_Remove(t *testing.T) {
	set := index.NewLocalIndexSet([]index.Descriptor{
		{Name: "pk", ColumnIDs: []int{0}, IsUnique: true},
	})
	row := column.Row{int64(1), "a"}
	if err := set.Append([]column.Row{row}, 100); err != nil {
		t.Fatalf("Append: %v", err)
	}

	set.Remove(row, 100)

	// Removed, so a second row with the same key should now be accepted.
	if err := set.Append([]column.Row{{int64(1), "b"}}, 200); err != nil {
		t.Fatalf("Append after Remove: %v", err)
	}
}
