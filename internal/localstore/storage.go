package localstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/thornfield-data/stagedb/internal/basetable"
	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/pkg/types"
)

// Storage is the per-transaction local storage façade. It maps base-table
// identity to TableStorage and exposes the operations the executor and
// transaction manager drive.
type Storage struct {
	txnID  uuid.UUID
	tables map[uuid.UUID]*entry
	log    *slog.Logger
}

type entry struct {
	base    basetable.BaseTable
	storage *TableStorage
}

// New creates an empty Storage for one transaction. A nil logger discards
// all log output.
func New(txnID uuid.UUID, log *slog.Logger) *Storage {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Storage{txnID: txnID, tables: make(map[uuid.UUID]*entry), log: log}
}

// Append looks up or lazily creates the TableStorage for table (created on
// first Append), validates the batch against the shadow unique indexes, and
// on success writes it to the staging collection. If the batch is rejected,
// an entry created by this call is removed again.
func (s *Storage) Append(table basetable.BaseTable, rows []column.Row) error {
	_, existed := s.lookup(table)
	e := s.entryFor(table)
	if err := e.storage.Append(rows); err != nil {
		if !existed {
			delete(s.tables, table.Descriptor().ID)
		}
		return err
	}
	s.log.Debug("staged rows appended", "table", table.Descriptor().Name, "count", len(rows))
	return nil
}

func (s *Storage) entryFor(table basetable.BaseTable) *entry {
	id := table.Descriptor().ID
	e, ok := s.tables[id]
	if !ok {
		e = &entry{base: table, storage: newTableStorage(table)}
		s.tables[id] = e
	}
	return e
}

func (s *Storage) lookup(table basetable.BaseTable) (*entry, bool) {
	e, ok := s.tables[table.Descriptor().ID]
	return e, ok
}

// InitializeScan delegates to the table's TableStorage, or returns a
// never-yields state if no storage exists for the table. filters is an
// optional, unevaluated filter set (comparison kernels are out of scope;
// see column.Filter).
func (s *Storage) InitializeScan(table basetable.BaseTable, columnIDs []int, filters []column.Filter) *column.ScanState {
	e, ok := s.lookup(table)
	if !ok {
		return column.InitializeScan(nil, columnIDs, filters)
	}
	return e.storage.InitializeScan(columnIDs, filters)
}

// InitializeParallelScan delegates to the table's TableStorage, or returns
// the empty-partitioning sentinel if absent.
func (s *Storage) InitializeParallelScan(table basetable.BaseTable) *column.ParallelScanState {
	e, ok := s.lookup(table)
	if !ok {
		return column.InitializeParallelScan(nil)
	}
	return e.storage.InitializeParallelScan()
}

// Delete routes by the row-id partition: rows below MaxRowID are committed
// and are forwarded to the base table's transactional delete path; rows at
// or above MaxRowID are staged locally and are marked dead in place.
func (s *Storage) Delete(ctx context.Context, table basetable.BaseTable, rowIDs []int64) error {
	for _, r := range rowIDs {
		if r < MaxRowID {
			mutator, ok := table.(basetable.CommittedMutator)
			if !ok {
				return types.NewNotSupportedError("base table does not support deleting committed rows", nil)
			}
			if err := mutator.DeleteCommitted(r); err != nil {
				return err
			}
			continue
		}
		e, ok := s.lookup(table)
		if !ok {
			return types.NewInvalidInputError(fmt.Sprintf("no staged rows for table %s", table.Descriptor().Name), nil)
		}
		if err := e.storage.Delete(r); err != nil {
			return err
		}
	}
	return nil
}

// Update routes by the row-id partition, mirroring Delete.
func (s *Storage) Update(ctx context.Context, table basetable.BaseTable, rowIDs []int64, columnIDs []int, values [][]column.Value) error {
	if len(rowIDs) != len(values) {
		return types.NewInvalidInputError("rowIDs and values must be the same length", nil)
	}
	for i, r := range rowIDs {
		if r < MaxRowID {
			mutator, ok := table.(basetable.CommittedMutator)
			if !ok {
				return types.NewNotSupportedError("base table does not support updating committed rows", nil)
			}
			if err := mutator.UpdateCommitted(r, columnIDs, values[i]); err != nil {
				return err
			}
			continue
		}
		e, ok := s.lookup(table)
		if !ok {
			return types.NewInvalidInputError(fmt.Sprintf("no staged rows for table %s", table.Descriptor().Name), nil)
		}
		if err := e.storage.Update(r, columnIDs, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddedRows returns total_rows - deleted_rows for the staged table, or 0 if
// no staging entry exists.
func (s *Storage) AddedRows(table basetable.BaseTable) int64 {
	e, ok := s.lookup(table)
	if !ok {
		return 0
	}
	return e.storage.AddedRows()
}

// EstimatedSize sums EstimatedSize across every staged table.
func (s *Storage) EstimatedSize() int64 {
	var total int64
	for _, e := range s.tables {
		total += e.storage.EstimatedSize()
	}
	return total
}

// HasStaging reports whether any table has a staging entry in this
// transaction, used by callers deciding whether a commit needs to flush
// anything. An entry stays after all of its staged rows are deleted.
func (s *Storage) HasStaging() bool {
	return len(s.tables) > 0
}
