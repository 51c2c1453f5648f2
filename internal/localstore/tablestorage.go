// Package localstore implements the transaction-local write buffer itself:
// per-table staging storage (TableStorage), the per-transaction façade
// (Storage), and the flush/commit protocol that folds staged rows into base
// tables.
package localstore

import (
	"github.com/thornfield-data/stagedb/internal/basetable"
	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/internal/index"
	"github.com/thornfield-data/stagedb/pkg/types"
)

// MaxRowID is the reserved boundary separating committed row identifiers
// (strictly less than MaxRowID) from transaction-local ones (>= MaxRowID).
// This value is an ABI contract with the index layer, mirrored here as an
// exported constant so callers outside this package can classify a row id
// without reaching into internals.
const MaxRowID int64 = 1 << 62

// TableStorage is the per-(transaction, table) local write buffer. It owns
// a RowGroupCollection, a LocalIndexSet, and per-column stats, and tracks
// the count of locally-deleted rows via the collection's tombstone bitmap.
type TableStorage struct {
	base    basetable.BaseTable
	rows    *column.RowGroupCollection
	indexes *index.LocalIndexSet
	stats   []*column.ColumnStats
}

// newTableStorage constructs an empty TableStorage for the given base
// table, mirroring its unique indexes into a fresh LocalIndexSet.
func newTableStorage(base basetable.BaseTable) *TableStorage {
	desc := base.Descriptor()
	stats := make([]*column.ColumnStats, len(desc.ColumnTypes))
	for i, t := range desc.ColumnTypes {
		stats[i] = column.NewColumnStats(t)
	}
	return &TableStorage{
		base:    base,
		rows:    column.NewRowGroupCollection(desc.ColumnTypes, MaxRowID),
		indexes: index.NewLocalIndexSet(desc.Indexes),
		stats:   stats,
	}
}

// Append validates rows against the shadow unique indexes and, on success,
// writes them to the staging collection and folds them into stats. On
// failure the staging collection, its stats, and the shadow indexes are all
// left exactly as they were: a rejected batch is not added to the row-group
// collection or stats.
func (ts *TableStorage) Append(rows []column.Row) error {
	baseID := MaxRowID + ts.rows.TotalRows()
	if err := ts.indexes.Append(rows, baseID); err != nil {
		return err
	}
	if _, err := ts.rows.Append(rows); err != nil {
		// The batch was accepted by the index set but rejected by the
		// collection (e.g. wrong row width) — unwind the index entries we
		// just installed so the two stay consistent, then propagate.
		for i, row := range rows {
			ts.indexes.Remove(row, baseID+int64(i))
		}
		return err
	}
	for _, row := range rows {
		for ci, v := range row {
			ts.stats[ci].Update(v)
		}
	}
	return nil
}

// Delete marks a local row dead. No unique-index re-validation is needed,
// since removing a row cannot create a duplicate.
func (ts *TableStorage) Delete(localRowID int64) error {
	if localRowID < MaxRowID || localRowID >= MaxRowID+ts.rows.TotalRows() {
		return types.NewInvalidInputError("row id is not a local staged row", nil)
	}
	if ts.rows.IsDeleted(localRowID) {
		return types.NewInvalidActionError("row is already deleted", nil)
	}
	row := ts.rowAt(localRowID)
	ts.rows.MarkDeleted(localRowID)
	ts.indexes.Remove(row, localRowID)
	return nil
}

// Update applies a column-wise mutation to a staged row. Any of the touched
// columns that participate in a unique shadow index is re-validated against
// the rest of the staging collection (excluding this row) before the
// mutation is applied; on conflict the row is left unmodified.
func (ts *TableStorage) Update(localRowID int64, columnIDs []int, values []column.Value) error {
	if localRowID < MaxRowID || localRowID >= MaxRowID+ts.rows.TotalRows() {
		return types.NewInvalidInputError("row id is not a local staged row", nil)
	}
	if ts.rows.IsDeleted(localRowID) {
		return types.NewInvalidActionError("row is deleted", nil)
	}
	if len(columnIDs) != len(values) {
		return types.NewInvalidInputError("columnIDs and values must be the same length", nil)
	}

	old := ts.rowAt(localRowID)
	ts.indexes.Remove(old, localRowID)

	updated := append(column.Row(nil), old...)
	for i, ci := range columnIDs {
		updated[ci] = values[i]
	}

	if err := ts.indexes.Append([]column.Row{updated}, localRowID); err != nil {
		// Re-validation failed: restore the original index entries and
		// leave the column data untouched.
		_ = ts.indexes.Append([]column.Row{old}, localRowID)
		return err
	}

	for i, ci := range columnIDs {
		if err := ts.rows.SetValue(localRowID, ci, values[i]); err != nil {
			return err
		}
		ts.stats[ci].Update(values[i])
	}
	return nil
}

func (ts *TableStorage) rowAt(localRowID int64) column.Row {
	row := make(column.Row, len(ts.stats))
	for ci := range row {
		row[ci] = ts.rows.GetValue(localRowID, ci)
	}
	return row
}

// InitializeScan prepares a sequential scan over the given column ids and
// optional filter set. If staging is empty, the returned state yields no
// rows on Next. Filter evaluation is out of scope (spec.md §1); filters is
// carried through to the returned ScanState unevaluated.
func (ts *TableStorage) InitializeScan(columnIDs []int, filters []column.Filter) *column.ScanState {
	return column.InitializeScan(ts.rows, columnIDs, filters)
}

// InitializeParallelScan partitions the staging collection for concurrent
// consumers of the same transaction.
func (ts *TableStorage) InitializeParallelScan() *column.ParallelScanState {
	return column.InitializeParallelScan(ts.rows)
}

// EstimatedSize returns appended_rows * sum(internal type sizes).
func (ts *TableStorage) EstimatedSize() int64 {
	var perRow int64
	for _, s := range ts.stats {
		perRow += int64(s.Type.InternalSize())
	}
	return ts.rows.AppendedRows() * perRow
}

// AddedRows returns total_rows - deleted_rows for this table's staging
// collection.
func (ts *TableStorage) AddedRows() int64 {
	return ts.rows.AppendedRows()
}

// Stats exposes the running per-column statistics, e.g. for a caller that
// wants to fold them into base-table zone maps at flush (out of scope here;
// exposed for completeness and tests).
func (ts *TableStorage) Stats() []*column.ColumnStats {
	return ts.stats
}
