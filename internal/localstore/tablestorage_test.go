package localstore

import (
	"testing"

	"github.com/google/uuid"

	"github.com/thornfield-data/stagedb/internal/basetable"
	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/internal/index"
)

func newTestBase(t *testing.T) basetable.BaseTable {
	t.Helper()
	return basetable.NewMemTable(basetable.TableDescriptor{
		ID:          uuid.New(),
		Name:        "t",
		ColumnTypes: []column.LogicalType{column.TypeInt64, column.TypeVarchar},
		Indexes:     []index.Descriptor{{Name: "pk", ColumnIDs: []int{0}, IsUnique: true}},
	})
}

func TestTableStorage_Append_AssignsRowsAboveMaxRowID(t *testing.T) {
	ts := newTableStorage(newTestBase(t))

	err := ts.Append([]column.Row{{int64(1), "a"}, {int64(2), "b"}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ts.AddedRows() != 2 {
		t.Fatalf("AddedRows() = %d, want 2", ts.AddedRows())
	}
}

func TestTableStorage_Append_RejectsDuplicateUniqueKey(t *testing.T) {
	ts := newTableStorage(newTestBase(t))
	if err := ts.Append([]column.Row{{int64(1), "a"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := ts.Append([]column.Row{{int64(1), "b"}}); err == nil {
		t.Fatal("expected a unique constraint violation on the duplicate pk")
	}
	if ts.AddedRows() != 1 {
		t.Fatalf("AddedRows() = %d, want 1 (the rejected batch must not be counted)", ts.AddedRows())
	}
}

func TestTableStorage_Delete(t *testing.T) {
	ts := newTableStorage(newTestBase(t))
	if err := ts.Append([]column.Row{{int64(1), "a"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	localID := MaxRowID

	if err := ts.Delete(localID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := ts.Delete(localID); err == nil {
		t.Fatal("expected deleting an already-deleted row to fail")
	}

	// The key must be reusable after delete.
	if err := ts.Append([]column.Row{{int64(1), "c"}}); err != nil {
		t.Fatalf("Append after delete of the same key: %v", err)
	}
}

func TestTableStorage_Update_RevalidatesUniqueColumns(t *testing.T) {
	ts := newTableStorage(newTestBase(t))
	if err := ts.Append([]column.Row{{int64(1), "a"}, {int64(2), "b"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Attempt to update row 2's pk to 1, which collides with row 1.
	err := ts.Update(MaxRowID+1, []int{0}, []column.Value{int64(1)})
	if err == nil {
		t.Fatal("expected the update to fail on a unique conflict")
	}

	// Row 2 must be unchanged.
	if got := ts.rowAt(MaxRowID + 1)[0]; got != int64(2) {
		t.Fatalf("row 2's pk = %v, want unchanged 2", got)
	}

	// A non-conflicting update should succeed.
	if err := ts.Update(MaxRowID+1, []int{0}, []column.Value{int64(3)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := ts.rowAt(MaxRowID + 1)[0]; got != int64(3) {
		t.Fatalf("row 2's pk = %v, want 3", got)
	}
}

func TestTableStorage_EstimatedSize(t *testing.T) {
	ts := newTableStorage(newTestBase(t))
	if ts.EstimatedSize() != 0 {
		t.Fatalf("EstimatedSize() = %d, want 0 on an empty table", ts.EstimatedSize())
	}
	if err := ts.Append([]column.Row{{int64(1), "a"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ts.EstimatedSize() <= 0 {
		t.Fatal("expected a positive estimated size after appending a row")
	}
}

// TestTableStorage_EstimatedSize_MatchesScenario6Formula reproduces spec.md
// §8 scenario 6 exactly: t(a INT32, b INT64), 100 appended rows, then 40
// staged deletions, checking the literal 1200 -> 720 figures rather than
// just a positive/non-positive bound.
func TestTableStorage_EstimatedSize_MatchesScenario6Formula(t *testing.T) {
	base := basetable.NewMemTable(basetable.TableDescriptor{
		ID:          uuid.New(),
		Name:        "t",
		ColumnTypes: []column.LogicalType{column.TypeInt32, column.TypeInt64},
	})
	ts := newTableStorage(base)

	rows := make([]column.Row, 100)
	for i := range rows {
		rows[i] = column.Row{int32(i), int64(i)}
	}
	if err := ts.Append(rows); err != nil {
		t.Fatalf("Append: %v", err)
	}

	const perRow = 4 + 8 // sizeof(INT32) + sizeof(INT64)
	if got, want := ts.EstimatedSize(), int64(100*perRow); got != want {
		t.Fatalf("EstimatedSize() = %d, want %d (100 * (sizeof(INT32)+sizeof(INT64)))", got, want)
	}

	for i := int64(0); i < 40; i++ {
		if err := ts.Delete(MaxRowID + i); err != nil {
			t.Fatalf("Delete(%d): %v", MaxRowID+i, err)
		}
	}

	if got, want := ts.EstimatedSize(), int64(60*perRow); got != want {
		t.Fatalf("EstimatedSize() after deleting 40 rows = %d, want %d (60 * (sizeof(INT32)+sizeof(INT64)))", got, want)
	}
}
