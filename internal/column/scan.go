package column

import "sync/atomic"

// Filter is an opaque per-scan predicate, matching spec.md §4.1/§4.3's
// InitializeScan(state, filters) contract. Filter evaluation is out of
// scope (comparison operator kernels and the type system beyond column
// appends are explicitly out of scope per spec.md §1), so a scan's filter
// set is carried through as a no-op passthrough: it is stored on ScanState
// for a future evaluator to consume but is never applied by Next itself.
type Filter any

// ScanState drives a sequential Scan over a RowGroupCollection. It is
// intentionally trivial: the collection never compacts, so resuming a scan
// is just remembering which group to visit next.
type ScanState struct {
	collection *RowGroupCollection
	nextGroup  int
	columnIDs  []int
	filters    []Filter
}

// InitializeScan prepares state for a sequential scan over the given column
// ids and optional filter set. If the collection is empty (no staged rows at
// all), state is left in a condition where Next immediately reports
// exhaustion, as required for InitializeScan on an absent/empty table.
func InitializeScan(c *RowGroupCollection, columnIDs []int, filters []Filter) *ScanState {
	return &ScanState{collection: c, columnIDs: columnIDs, filters: filters}
}

// Filters returns the filter set the scan was initialized with, unevaluated.
func (s *ScanState) Filters() []Filter {
	return s.filters
}

// Next returns the next live chunk projected to the requested columns, or
// ok=false when the scan is exhausted.
func (s *ScanState) Next() (chunk Chunk, ok bool) {
	if s.collection == nil {
		return Chunk{}, false
	}
	for s.nextGroup < len(s.collection.groups) {
		idx := s.nextGroup
		s.nextGroup++
		g := s.collection.groups[idx]
		groupStart := s.collection.BaseRowID + int64(idx*RowGroupSize)
		n := g.len()
		ids := make([]int64, 0, n)
		for i := 0; i < n; i++ {
			id := groupStart + int64(i)
			if !s.collection.IsDeleted(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		projected := make([]*Vector, len(s.columnIDs))
		for pi, ci := range s.columnIDs {
			projected[pi] = selectLive(g, ids, groupStart)[ci]
		}
		return Chunk{RowIDs: ids, Columns: projected}, true
	}
	return Chunk{}, false
}

// ParallelScanState partitions a RowGroupCollection's row groups across
// concurrent readers of the same transaction. Partitioning is by row-group
// boundary and is monotonic. When the table has no staging entry at all,
// MaxRow is left at 0 — an empty-partitioning sentinel, rather than a nil
// pointer.
type ParallelScanState struct {
	collection *RowGroupCollection
	MaxRow     int64
	cursor     atomic.Int64
}

// InitializeParallelScan prepares partition state. Passing a nil collection
// yields the empty-partitioning sentinel.
func InitializeParallelScan(c *RowGroupCollection) *ParallelScanState {
	if c == nil {
		return &ParallelScanState{}
	}
	return &ParallelScanState{collection: c, MaxRow: int64(len(c.groups))}
}

// LocalScanState is handed to each concurrent reader by NextParallelScan.
type LocalScanState struct {
	GroupIndex int
	Chunk      Chunk
}

// NextParallelScan claims the next unclaimed row group for the calling
// reader. It is safe to call concurrently: the cursor advance is the only
// shared mutation and partitioning is monotonic, so two readers never claim
// the same group.
func (p *ParallelScanState) NextParallelScan() (*LocalScanState, bool) {
	if p.collection == nil {
		return nil, false
	}
	idx := p.claim()
	if idx < 0 {
		return nil, false
	}
	g := p.collection.groups[idx]
	groupStart := p.collection.BaseRowID + int64(idx*RowGroupSize)
	n := g.len()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id := groupStart + int64(i)
		if !p.collection.IsDeleted(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return &LocalScanState{GroupIndex: idx, Chunk: Chunk{}}, true
	}
	return &LocalScanState{GroupIndex: idx, Chunk: Chunk{RowIDs: ids, Columns: selectLive(g, ids, groupStart)}}, true
}

// claim atomically hands out the next group index, or -1 once exhausted.
// Multiple reader goroutines of the same transaction may call
// NextParallelScan concurrently; the cursor is the only shared mutable
// state, so a single atomic add is sufficient to keep partitioning
// monotonic and conflict-free.
func (p *ParallelScanState) claim() int {
	idx := p.cursor.Add(1) - 1
	if idx >= p.MaxRow {
		return -1
	}
	return int(idx)
}
