package index

import (
	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/pkg/types"
)

// LocalIndexSet holds one shadow index per unique index on a base table. It
// is populated synchronously with every Append into the owning table's
// staging collection — never lazily.
type LocalIndexSet struct {
	indexes []Index
}

// NewLocalIndexSet builds a shadow index for every unique descriptor on the
// base table, mirroring its column set and expressions (expressions
// themselves are out of scope here; only the column-id projection matters
// for encoding keys).
func NewLocalIndexSet(descriptors []Descriptor) *LocalIndexSet {
	return &LocalIndexSet{indexes: NewFromDescriptors(descriptors)}
}

// Indexes exposes the underlying shadow indexes, e.g. so Flush can replay
// them against the base table's indexes.
func (s *LocalIndexSet) Indexes() []Index {
	return s.indexes
}

// Append validates and installs keys for a batch of rows starting at baseID:
// every shadow index must accept the batch, or none of them retain it.
// Because each Index.Insert is itself atomic and side-effect-free on
// failure, a rejection from index k safely leaves indexes [0,k) holding
// entries that must be unwound before reporting failure to the caller.
func (s *LocalIndexSet) Append(rows []column.Row, baseID int64) error {
	installed := 0
	for _, idx := range s.indexes {
		keys, rowIDs := buildKeys(idx, rows, baseID)
		if len(keys) == 0 {
			installed++
			continue // every row had a NULL in this index's columns: nothing to enforce
		}
		if !idx.Insert(keys, rowIDs) {
			s.unwind(installed, rows, baseID)
			return types.NewUniqueConstraintViolationError("PRIMARY KEY or UNIQUE constraint violated: duplicated key", nil)
		}
		installed++
	}
	return nil
}

// unwind removes the batch's entries from the first n shadow indexes,
// compensating a partial install the same way the flush protocol
// compensates a partial base-index install.
func (s *LocalIndexSet) unwind(n int, rows []column.Row, baseID int64) {
	for i := 0; i < n; i++ {
		idx := s.indexes[i]
		keys, rowIDs := buildKeys(idx, rows, baseID)
		if len(keys) > 0 {
			idx.Remove(keys, rowIDs)
		}
	}
}

// Remove deletes a single row's entries from every shadow index, used when a
// staged row is deleted or updated.
func (s *LocalIndexSet) Remove(row column.Row, rowID int64) {
	for _, idx := range s.indexes {
		keys, rowIDs := buildKeys(idx, []column.Row{row}, rowID)
		if len(keys) > 0 {
			idx.Remove(keys, rowIDs)
		}
	}
}

// buildKeys encodes one key per row for the given index's column set,
// paired with the row id it belongs to. Rows with a NULL in any of the
// index's columns are omitted entirely: SQL NULL never participates in a
// uniqueness check.
func buildKeys(idx Index, rows []column.Row, baseID int64) ([]Key, []int64) {
	keys := make([]Key, 0, len(rows))
	rowIDs := make([]int64, 0, len(rows))
	for i, r := range rows {
		if k, present := EncodeKey(r, idx.ColumnIDs()); present {
			keys = append(keys, k)
			rowIDs = append(rowIDs, baseID+int64(i))
		}
	}
	return keys, rowIDs
}
