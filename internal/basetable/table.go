// Package basetable defines the borrowed base-table collaborator that the
// staging engine folds flushed rows into. The real committed-side row-group
// store is out of scope; this package defines the interface precisely and
// ships one concrete in-memory implementation so the rest of the module is
// fully exercisable without a real storage layer.
package basetable

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/internal/index"
	"github.com/thornfield-data/stagedb/pkg/types"
)

// TableDescriptor describes a base table's schema: its column types and the
// unique indexes defined over it, the minimum a LocalTableStorage needs to
// mirror the shape of its shadow indexes.
type TableDescriptor struct {
	ID          uuid.UUID
	Name        string
	ColumnTypes []column.LogicalType
	Indexes     []index.Descriptor
}

// AppendState tracks a reserved append region on the base table: a
// monotonic cursor reservation adapted from file-offset reservation to
// row-id reservation.
type AppendState struct {
	RowStart   int64
	CurrentRow int64
}

// BaseTable is the collaborator interface the flush protocol drives. A
// transaction holds an exclusive write lock on the table for the duration of
// its own Flush call.
type BaseTable interface {
	Descriptor() TableDescriptor

	// InitializeAppend reserves `count` committed row ids and returns a
	// cursor for writing them.
	InitializeAppend(ctx context.Context, txnID uuid.UUID, count int) (*AppendState, error)

	// Append writes one chunk at the current cursor, advancing it.
	Append(ctx context.Context, state *AppendState, chunk column.Chunk) error

	// AppendToIndexes attempts to insert chunk's values into the base
	// table's unique indexes, keying rows starting at baseID. false means a
	// conflict was found and no index retains any entry from this chunk:
	// indexes that accepted it before the failing one are unwound before
	// returning. Entries from earlier, already-accepted chunks stay, and
	// callers remove those with RemoveFromIndexes (as flush.go does).
	AppendToIndexes(chunk column.Chunk, baseID int64) (bool, error)

	// RemoveFromIndexes removes entries for rows in [fromRowStart,
	// upTo) from the base indexes, the compensating action used when a
	// later chunk's index insert fails mid-flush.
	RemoveFromIndexes(fromRowStart int64, upTo int64)

	// RevertAppendInternal abandons a reserved region, returning its rows
	// to the free/unallocated range.
	RevertAppendInternal(rowStart int64, count int)

	// RowCount returns the number of row ids the table has allocated so
	// far (tombstoned rows included), which is where the next
	// InitializeAppend region starts.
	RowCount() int64
}

// MemTable is a BaseTable implementation backed entirely by memory: a
// mutex-guarded monotonic append cursor plus the table's own index set, so
// that the flush protocol's "insert into base index before appending rows"
// ordering is enforced by a real collaborator rather than a stub.
type MemTable struct {
	mu         sync.Mutex
	descriptor TableDescriptor
	indexes    []index.Index
	rows       []column.Row // committed rows, positionally keyed by row id
	reserved   int64        // rows reserved via InitializeAppend, less those given back by RevertAppendInternal
	tombstones map[int64]bool
}

// CommittedMutator is the narrow, optional interface a BaseTable may
// implement to accept delete/update of already-committed rows forwarded
// from Storage.Delete/Storage.Update. The real base table's transactional
// delete/update path is an opaque, out-of-scope collaborator; MemTable
// implements it with plain tombstoning so the forwarding behavior itself is
// exercisable and testable.
type CommittedMutator interface {
	DeleteCommitted(rowID int64) error
	UpdateCommitted(rowID int64, columnIDs []int, values []column.Value) error
}

// NewMemTable constructs an empty in-memory base table for the given
// descriptor.
func NewMemTable(descriptor TableDescriptor) *MemTable {
	return &MemTable{
		descriptor: descriptor,
		indexes:    index.NewFromDescriptors(descriptor.Indexes),
	}
}

func (t *MemTable) Descriptor() TableDescriptor {
	return t.descriptor
}

func (t *MemTable) InitializeAppend(_ context.Context, _ uuid.UUID, count int) (*AppendState, error) {
	if count < 0 {
		return nil, types.NewInvalidInputError("append count cannot be negative", nil)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	// rows already covers every earlier reservation (it is grown below), so
	// the next free row id is simply its length.
	rowStart := int64(len(t.rows))
	t.reserved += int64(count)
	// Grow the backing slice now so Append can write by absolute row id
	// without repeated bounds juggling; unwritten rows are nil until
	// Append or RevertAppendInternal resolves them.
	for int64(len(t.rows)) < rowStart+int64(count) {
		t.rows = append(t.rows, nil)
	}
	return &AppendState{RowStart: rowStart, CurrentRow: rowStart}, nil
}

func (t *MemTable) Append(_ context.Context, state *AppendState, chunk column.Chunk) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range chunk.RowIDs {
		row := make(column.Row, len(chunk.Columns))
		for ci, v := range chunk.Columns {
			row[ci] = v.At(i)
		}
		t.rows[state.CurrentRow] = row
		state.CurrentRow++
	}
	return nil
}

func (t *MemTable) AppendToIndexes(chunk column.Chunk, baseID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := chunkToRows(chunk)
	installed := 0
	for _, idx := range t.indexes {
		keys, rowIDs := encodeChunkKeys(idx, rows, baseID)
		if len(keys) == 0 {
			installed++
			continue
		}
		if !idx.Insert(keys, rowIDs) {
			// compensate the indexes that already accepted this chunk
			for i := 0; i < installed; i++ {
				k, r := encodeChunkKeys(t.indexes[i], rows, baseID)
				if len(k) > 0 {
					t.indexes[i].Remove(k, r)
				}
			}
			return false, nil
		}
		installed++
	}
	return true, nil
}

func (t *MemTable) RemoveFromIndexes(fromRowStart int64, upTo int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for rowID := fromRowStart; rowID < upTo; rowID++ {
		pos := rowID
		if pos < 0 || pos >= int64(len(t.rows)) || t.rows[pos] == nil {
			continue
		}
		row := t.rows[pos]
		for _, idx := range t.indexes {
			if k, present := index.EncodeKey(row, idx.ColumnIDs()); present {
				idx.Remove([]index.Key{k}, []int64{rowID})
			}
		}
	}
}

func (t *MemTable) RevertAppendInternal(rowStart int64, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	end := rowStart + int64(count)
	if end == int64(len(t.rows)) {
		t.rows = t.rows[:rowStart]
	}
	t.reserved -= int64(count)
}

func (t *MemTable) RowCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.rows))
}

// DeleteCommitted tombstones an already-committed row.
func (t *MemTable) DeleteCommitted(rowID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rowID < 0 || rowID >= int64(len(t.rows)) || t.rows[rowID] == nil {
		return types.NewInvalidInputError("row id does not exist in base table", nil)
	}
	if t.tombstones == nil {
		t.tombstones = make(map[int64]bool)
	}
	t.tombstones[rowID] = true
	return nil
}

// UpdateCommitted applies a column-wise mutation to an already-committed,
// non-tombstoned row.
func (t *MemTable) UpdateCommitted(rowID int64, columnIDs []int, values []column.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rowID < 0 || rowID >= int64(len(t.rows)) || t.rows[rowID] == nil || t.tombstones[rowID] {
		return types.NewInvalidInputError("row id does not exist in base table", nil)
	}
	row := t.rows[rowID]
	for i, ci := range columnIDs {
		row[ci] = values[i]
	}
	return nil
}

// Rows returns a defensive copy of committed, non-tombstoned rows, for
// tests and the CLI.
func (t *MemTable) Rows() []column.Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]column.Row, 0, len(t.rows))
	for i, r := range t.rows {
		if r != nil && !t.tombstones[int64(i)] {
			out = append(out, r)
		}
	}
	return out
}

func chunkToRows(chunk column.Chunk) []column.Row {
	rows := make([]column.Row, len(chunk.RowIDs))
	for i := range chunk.RowIDs {
		row := make(column.Row, len(chunk.Columns))
		for ci, v := range chunk.Columns {
			row[ci] = v.At(i)
		}
		rows[i] = row
	}
	return rows
}

func encodeChunkKeys(idx index.Index, rows []column.Row, baseID int64) ([]index.Key, []int64) {
	keys := make([]index.Key, 0, len(rows))
	rowIDs := make([]int64, 0, len(rows))
	for i, r := range rows {
		if k, present := index.EncodeKey(r, idx.ColumnIDs()); present {
			keys = append(keys, k)
			rowIDs = append(rowIDs, baseID+int64(i))
		}
	}
	return keys, rowIDs
}
