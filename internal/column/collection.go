package column

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/thornfield-data/stagedb/pkg/types"
)

// RowGroupSize bounds how many rows a single row group holds before the
// collection opens a new one; a row group is the unit of scan parallelism.
const RowGroupSize = 2048

// Row is one row's worth of values, column-ordered to match the
// RowGroupCollection's ColumnTypes.
type Row []Value

// rowGroup is one column-major horizontal slice of the staging collection.
type rowGroup struct {
	columns []*Vector
}

func newRowGroup(types []LogicalType) *rowGroup {
	cols := make([]*Vector, len(types))
	for i, t := range types {
		cols[i] = NewVector(t)
	}
	return &rowGroup{columns: cols}
}

func (g *rowGroup) len() int {
	if len(g.columns) == 0 {
		return 0
	}
	return g.columns[0].Len()
}

// RowGroupCollection is the append-only, columnar, in-memory staging
// buffer. Local identifiers are assigned monotonically starting at
// baseRowID (= MAX_ROW_ID for a top-level transaction); the collection
// never renumbers or compacts rows in place — deletion only marks bits
// dead in the tombstone bitmap.
type RowGroupCollection struct {
	ColumnTypes []LogicalType
	BaseRowID   int64
	groups      []*rowGroup
	totalRows   int64
	// dead tracks locally-deleted row offsets (relative to BaseRowID) with a
	// roaring bitmap: deletions within one transaction are typically sparse
	// and can span the whole staged range, which is exactly the access
	// pattern roaring bitmaps are built for (unlike the dense per-chunk
	// validity bitmaps used inside Vector).
	dead *roaring.Bitmap
}

// NewRowGroupCollection creates an empty collection for the given column
// types, with local identifiers starting at baseRowID.
func NewRowGroupCollection(colTypes []LogicalType, baseRowID int64) *RowGroupCollection {
	return &RowGroupCollection{
		ColumnTypes: colTypes,
		BaseRowID:   baseRowID,
		dead:        roaring.New(),
	}
}

// TotalRows returns the number of rows ever appended (including deleted ones).
func (c *RowGroupCollection) TotalRows() int64 {
	return c.totalRows
}

// DeletedRows returns the number of rows marked dead.
func (c *RowGroupCollection) DeletedRows() int64 {
	return int64(c.dead.GetCardinality())
}

// AppendedRows returns TotalRows - DeletedRows, the count that will survive
// to flush.
func (c *RowGroupCollection) AppendedRows() int64 {
	return c.totalRows - c.DeletedRows()
}

// Append writes a batch of rows, returning the local row id assigned to the
// first row in the batch. Rows must have len(row) == len(ColumnTypes). The
// whole batch is validated before anything is written, so a malformed row
// anywhere in the batch leaves the collection completely unchanged.
func (c *RowGroupCollection) Append(rows []Row) (int64, error) {
	for _, row := range rows {
		if len(row) != len(c.ColumnTypes) {
			return 0, types.NewInvalidInputError("row width does not match column count", nil)
		}
		for i, v := range row {
			if v != nil {
				if err := checkType(c.ColumnTypes[i], v); err != nil {
					return 0, err
				}
			}
		}
	}

	base := c.BaseRowID + c.totalRows
	for _, row := range rows {
		if err := c.appendOne(row); err != nil {
			return 0, err
		}
	}
	return base, nil
}

func (c *RowGroupCollection) appendOne(row Row) error {
	group := c.currentGroup()
	for i, v := range row {
		if err := group.columns[i].Append(v); err != nil {
			return err
		}
	}
	c.totalRows++
	return nil
}

func (c *RowGroupCollection) currentGroup() *rowGroup {
	if len(c.groups) == 0 || c.groups[len(c.groups)-1].len() >= RowGroupSize {
		c.groups = append(c.groups, newRowGroup(c.ColumnTypes))
	}
	return c.groups[len(c.groups)-1]
}

// MarkDeleted marks a local row id dead so a subsequent flush skips it. The
// id must be a local id (>= BaseRowID); the caller is responsible for the
// committed/local partition check.
func (c *RowGroupCollection) MarkDeleted(localRowID int64) {
	c.dead.Add(uint32(localRowID - c.BaseRowID))
}

// IsDeleted reports whether a local row id has been marked dead.
func (c *RowGroupCollection) IsDeleted(localRowID int64) bool {
	return c.dead.Contains(uint32(localRowID - c.BaseRowID))
}

// SetValue overwrites a single column of a single local row in place, used
// by Update on staged rows.
func (c *RowGroupCollection) SetValue(localRowID int64, columnIdx int, v Value) error {
	offset := localRowID - c.BaseRowID
	if offset < 0 || offset >= c.totalRows {
		return types.NewInvalidInputError("row id out of range for staging collection", nil)
	}
	groupIdx := offset / RowGroupSize
	within := offset % RowGroupSize
	return c.groups[groupIdx].columns[columnIdx].Set(int(within), v)
}

// GetValue reads a single column of a single local row.
func (c *RowGroupCollection) GetValue(localRowID int64, columnIdx int) Value {
	offset := localRowID - c.BaseRowID
	groupIdx := offset / RowGroupSize
	within := offset % RowGroupSize
	return c.groups[groupIdx].columns[columnIdx].At(int(within))
}

// Chunk is a columnar slice of rows handed to a scan consumer or to the
// flush protocol, carrying the local row ids the values correspond to so
// callers can cross-reference index/tombstone state.
type Chunk struct {
	RowIDs  []int64
	Columns []*Vector // parallel to RowGroupCollection.ColumnTypes
}

// Scan invokes visit once per row group (skipping row groups entirely dead),
// in column-id order, matching the flush protocol's "scan in column-id
// order, producing chunks" requirement. Returning false from visit stops
// the scan early.
func (c *RowGroupCollection) Scan(visit func(Chunk) bool) {
	groupStart := c.BaseRowID
	for _, g := range c.groups {
		n := g.len()
		ids := make([]int64, 0, n)
		for i := 0; i < n; i++ {
			id := groupStart + int64(i)
			if !c.IsDeleted(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			if !visit(Chunk{RowIDs: ids, Columns: selectLive(g, ids, groupStart)}) {
				return
			}
		}
		groupStart += int64(n)
	}
}

// selectLive projects only the live rows of a group into fresh vectors,
// matching a chunk shaped to Chunk.RowIDs.
func selectLive(g *rowGroup, liveIDs []int64, groupStart int64) []*Vector {
	out := make([]*Vector, len(g.columns))
	for ci, col := range g.columns {
		v := NewVector(col.Type)
		for _, id := range liveIDs {
			local := int(id - groupStart)
			// errors are impossible here: values were already validated on
			// the original Append, and nulls re-append as nil.
			if col.IsNull(local) {
				_ = v.Append(nil)
			} else {
				_ = v.Append(col.At(local))
			}
		}
		out[ci] = v
	}
	return out
}

// GroupCount returns the number of row groups, used by parallel-scan
// partitioning.
func (c *RowGroupCollection) GroupCount() int {
	return len(c.groups)
}
