package column

import "testing"

func colTypes() []LogicalType {
	return []LogicalType{TypeInt64, TypeVarchar}
}

func TestRowGroupCollection_AppendAssignsLocalIDs(t *testing.T) {
	c := NewRowGroupCollection(colTypes(), 1000)

	base, err := c.Append([]Row{{int64(1), "a"}, {int64(2), "b"}})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if base != 1000 {
		t.Fatalf("base row id = %d, want 1000", base)
	}
	if c.TotalRows() != 2 {
		t.Fatalf("TotalRows() = %d, want 2", c.TotalRows())
	}
}

func TestRowGroupCollection_Append_BatchIsAtomic(t *testing.T) {
	c := NewRowGroupCollection(colTypes(), 0)

	_, err := c.Append([]Row{{int64(1), "a"}, {int64(2)}}) // second row is too narrow
	if err == nil {
		t.Fatal("expected an error for a malformed row in the batch")
	}
	if c.TotalRows() != 0 {
		t.Fatalf("TotalRows() = %d, want 0 after a rejected batch", c.TotalRows())
	}
}

func TestRowGroupCollection_MarkDeleted(t *testing.T) {
	c := NewRowGroupCollection(colTypes(), 0)
	base, _ := c.Append([]Row{{int64(1), "a"}, {int64(2), "b"}})

	c.MarkDeleted(base)

	if !c.IsDeleted(base) {
		t.Fatal("expected row to be marked deleted")
	}
	if c.IsDeleted(base + 1) {
		t.Fatal("did not expect the second row to be deleted")
	}
	if c.DeletedRows() != 1 {
		t.Fatalf("DeletedRows() = %d, want 1", c.DeletedRows())
	}
	if c.AppendedRows() != 1 {
		t.Fatalf("AppendedRows() = %d, want 1", c.AppendedRows())
	}
}

func TestRowGroupCollection_Scan_SkipsDeletedRows(t *testing.T) {
	c := NewRowGroupCollection(colTypes(), 0)
	base, _ := c.Append([]Row{{int64(1), "a"}, {int64(2), "b"}, {int64(3), "c"}})
	c.MarkDeleted(base + 1)

	var seen []int64
	c.Scan(func(chunk Chunk) bool {
		seen = append(seen, chunk.RowIDs...)
		return true
	})

	if len(seen) != 2 || seen[0] != base || seen[1] != base+2 {
		t.Fatalf("Scan visited %v, want [%d %d]", seen, base, base+2)
	}
}

func TestRowGroupCollection_Scan_SpansMultipleGroups(t *testing.T) {
	c := NewRowGroupCollection([]LogicalType{TypeInt64}, 0)
	rows := make([]Row, RowGroupSize+5)
	for i := range rows {
		rows[i] = Row{int64(i)}
	}
	if _, err := c.Append(rows); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if c.GroupCount() != 2 {
		t.Fatalf("GroupCount() = %d, want 2", c.GroupCount())
	}

	total := 0
	c.Scan(func(chunk Chunk) bool {
		total += len(chunk.RowIDs)
		return true
	})
	if total != len(rows) {
		t.Fatalf("Scan visited %d rows, want %d", total, len(rows))
	}
}

func TestRowGroupCollection_SetValueAndGetValue(t *testing.T) {
	c := NewRowGroupCollection(colTypes(), 0)
	base, _ := c.Append([]Row{{int64(1), "a"}})

	if err := c.SetValue(base, 1, "updated"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := c.GetValue(base, 1); got != "updated" {
		t.Fatalf("GetValue = %v, want 'updated'", got)
	}
}
