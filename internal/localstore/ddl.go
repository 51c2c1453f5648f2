package localstore

import (
	"github.com/thornfield-data/stagedb/internal/basetable"
	"github.com/thornfield-data/stagedb/internal/column"
)

// DefaultExprFn computes the default value for a newly added column, given
// the index of the row within the staging collection being re-materialized.
// Expression evaluation itself is out of scope; callers supply the
// evaluated function.
type DefaultExprFn func(rowIndex int64) column.Value

// CastFn converts one column's existing value to its new logical type.
// Comparison/cast kernels are out of scope; callers supply the evaluated
// function.
type CastFn func(old column.Value) (column.Value, error)

// AddColumn re-materializes oldTable's staging collection under newTable's
// wider schema, evaluating defaultExpr for every staged row. The rewrite
// happens in a scratch collection; if defaultExpr (or anything else) fails
// partway, the original TableStorage for oldTable is left completely
// untouched.
func (s *Storage) AddColumn(oldTable, newTable basetable.BaseTable, defaultExpr DefaultExprFn) error {
	e, ok := s.lookup(oldTable)
	if !ok {
		// No staged data: nothing to re-materialize. The caller still owns
		// swapping the schema pointer at the executor level.
		return nil
	}

	newTS := newTableStorage(newTable)
	var rebuildErr error
	e.storage.rows.Scan(func(chunk column.Chunk) bool {
		for i, rowID := range chunk.RowIDs {
			row := make(column.Row, len(chunk.Columns)+1)
			for ci, v := range chunk.Columns {
				row[ci] = v.At(i)
			}
			row[len(chunk.Columns)] = defaultExpr(rowID - e.storage.rows.BaseRowID)
			if err := newTS.Append([]column.Row{row}); err != nil {
				rebuildErr = err
				return false
			}
		}
		return true
	})
	if rebuildErr != nil {
		return rebuildErr
	}

	delete(s.tables, oldTable.Descriptor().ID)
	s.tables[newTable.Descriptor().ID] = &entry{base: newTable, storage: newTS}
	return nil
}

// ChangeType re-materializes one column of table's staging collection under
// a new cast. Like AddColumn, the rewrite happens in a scratch collection
// and is only swapped in on full success.
func (s *Storage) ChangeType(table basetable.BaseTable, columnIdx int, cast CastFn) error {
	e, ok := s.lookup(table)
	if !ok {
		return nil
	}

	newTS := newTableStorage(table)
	var rebuildErr error
	e.storage.rows.Scan(func(chunk column.Chunk) bool {
		for i := range chunk.RowIDs {
			row := make(column.Row, len(chunk.Columns))
			for ci, v := range chunk.Columns {
				row[ci] = v.At(i)
			}
			casted, err := cast(row[columnIdx])
			if err != nil {
				rebuildErr = err
				return false
			}
			row[columnIdx] = casted
			if err := newTS.Append([]column.Row{row}); err != nil {
				rebuildErr = err
				return false
			}
		}
		return true
	})
	if rebuildErr != nil {
		return rebuildErr
	}

	s.tables[table.Descriptor().ID] = &entry{base: table, storage: newTS}
	return nil
}
