package localstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// WALAppendEvent is the record emitted for each table successfully flushed,
// so it can be appended to the write-ahead log. Persisting the WAL itself is
// out of scope; this type is the shape the transaction manager would hand to
// that out-of-scope collaborator.
type WALAppendEvent struct {
	TableID      uuid.UUID
	TableName    string
	RowStart     int64
	AppendedRows int64
}

// Commit iterates the staged-table mapping and flushes each table in turn.
// Tables are drained in lexical order of their base table's id for
// deterministic test output; inter-table ordering is otherwise unspecified
// and cross-table abort discipline is deferred to the transaction manager,
// so the first constraint violation here simply stops the iteration and
// propagates.
//
// The set of tables to drain is captured up front rather than erased while
// iterating the live map.
func (s *Storage) Commit(ctx context.Context, wal func(WALAppendEvent)) error {
	ids := make([]uuid.UUID, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		e := s.tables[id]
		rowStart := e.base.RowCount()
		appended := e.storage.AddedRows()
		if err := flush(ctx, s.txnID, e.base, e.storage, s.log); err != nil {
			delete(s.tables, id)
			return err
		}
		delete(s.tables, id)
		if appended > 0 && wal != nil {
			wal(WALAppendEvent{
				TableID:      id,
				TableName:    e.base.Descriptor().Name,
				RowStart:     rowStart,
				AppendedRows: appended,
			})
		}
	}
	return nil
}

// Abort discards all staged state for the transaction without touching any
// base table. There is no partial-abort protocol.
func (s *Storage) Abort() {
	s.tables = make(map[uuid.UUID]*entry)
}
