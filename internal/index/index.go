// Package index implements the shadow-unique-index capability: a small
// interface modeling "enumerate, unique? flag, insert(key, rowid) ->
// ok/conflict, remove(key, rowid), scan", with a map-backed default
// implementation used both for the transaction-local shadow indexes and for
// the in-memory BaseTable's own base indexes. The shape generalizes a
// pluggable key-to-position lookup with a mutation hook from a single UUID
// key to an arbitrary composite key over one or more columns.
package index

import (
	"fmt"
	"strings"

	"github.com/thornfield-data/stagedb/internal/column"
)

// Key is the encoded composite key an index is built over: the string
// representation of each indexed column's value, joined, which is sufficient
// to detect equality for the closed set of logical types this module
// supports without pulling in comparison kernels (out of scope here).
type Key string

// EncodeKey builds a Key from a row's values at the given column positions.
// A row containing a NULL in any indexed column never collides with another
// row (SQL NULL is never equal to NULL for uniqueness purposes): for such a
// row EncodeKey returns present=false and no key, and callers leave the row
// out of the index.
func EncodeKey(row column.Row, columnIDs []int) (Key, bool) {
	parts := make([]string, len(columnIDs))
	for i, col := range columnIDs {
		v := row[col]
		if v == nil {
			return "", false
		}
		parts[i] = fmt.Sprintf("%v", v)
	}
	return Key(strings.Join(parts, "\x1f")), true
}

// Index is the capability contract every unique index (shadow or base)
// satisfies. Insert is atomic per batch: on conflict, no key from that batch
// is retained, and the caller does not need to compensate the index itself
// for rejected rows — only for rows from a *separate, already-committed*
// batch, which is what RemoveFromIndexes in the flush protocol is for.
type Index interface {
	IsUnique() bool
	ColumnIDs() []int
	// Insert validates and inserts a set of keys for the given row ids (in
	// matching order). On any duplicate — against existing entries or
	// within the batch itself — it returns ok=false and performs no
	// mutation at all.
	Insert(keys []Key, rowIDs []int64) (ok bool)
	// Remove deletes entries for the given keys/row ids. Removing a key
	// that is not present, or removing the wrong row id for a present key,
	// is a no-op.
	Remove(keys []Key, rowIDs []int64)
	// Scan enumerates all live entries. Returning false from visit stops
	// the scan early.
	Scan(visit func(key Key, rowID int64) bool)
}

// Descriptor describes one unique index over a base table, enough to
// reconstruct an equivalent shadow index over the same expressions and
// column set.
type Descriptor struct {
	Name      string
	ColumnIDs []int
	IsUnique  bool
}

// uniqueIndex is the default Index implementation: a plain map from encoded
// key to row id. "ART" names an implementation detail of the default
// variant — this module models the capability, not the data structure, so a
// map is a faithful and far simpler stand-in.
type uniqueIndex struct {
	columnIDs []int
	entries   map[Key]int64
}

// NewUniqueIndex constructs an empty unique index over the given columns.
func NewUniqueIndex(columnIDs []int) Index {
	return &uniqueIndex{
		columnIDs: append([]int(nil), columnIDs...),
		entries:   make(map[Key]int64),
	}
}

func (idx *uniqueIndex) IsUnique() bool   { return true }
func (idx *uniqueIndex) ColumnIDs() []int { return idx.columnIDs }

func (idx *uniqueIndex) Insert(keys []Key, rowIDs []int64) bool {
	if len(keys) != len(rowIDs) {
		return false
	}
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if _, exists := idx.entries[k]; exists {
			return false
		}
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
	}
	for i, k := range keys {
		idx.entries[k] = rowIDs[i]
	}
	return true
}

func (idx *uniqueIndex) Remove(keys []Key, rowIDs []int64) {
	for i, k := range keys {
		if existing, ok := idx.entries[k]; ok && existing == rowIDs[i] {
			delete(idx.entries, k)
		}
	}
}

func (idx *uniqueIndex) Scan(visit func(Key, int64) bool) {
	for k, rowID := range idx.entries {
		if !visit(k, rowID) {
			return
		}
	}
}

// NewFromDescriptors builds one Index per unique descriptor. Non-unique
// descriptors are skipped: only unique indexes are mirrored into the shadow
// set.
func NewFromDescriptors(descriptors []Descriptor) []Index {
	var out []Index
	for _, d := range descriptors {
		if !d.IsUnique {
			continue
		}
		out = append(out, NewUniqueIndex(d.ColumnIDs))
	}
	return out
}

