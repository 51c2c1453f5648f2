// Package stagedb provides a minimal public API for the transaction-local
// write buffer that sits in front of an embedded analytical table's base
// storage: staged appends, deletes, and updates with shadow unique indexes,
// scanned as one logical view and folded into base tables on commit.
//
// This package re-exports the core types from the internal implementation,
// exposing only what a storage executor needs to drive one transaction's
// staging area.
//
// Import Path: github.com/thornfield-data/stagedb/pkg/stagedb
package stagedb

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/thornfield-data/stagedb/internal/localstore"
)

// Storage is the per-transaction write buffer: one LocalStorage per active
// transaction, holding zero or more per-table TableStorage entries created
// lazily on first Append.
type Storage = localstore.Storage

// WALAppendEvent is the record a commit emits for each table it flushes, for
// handing to the (out-of-scope) write-ahead log.
type WALAppendEvent = localstore.WALAppendEvent

// DefaultExprFn and CastFn parameterize AddColumn/ChangeType re-materialization.
type DefaultExprFn = localstore.DefaultExprFn
type CastFn = localstore.CastFn

// MaxRowID is the reserved boundary between committed row identifiers
// (< MaxRowID) and transaction-local ones (>= MaxRowID).
const MaxRowID = localstore.MaxRowID

// New creates an empty Storage for one transaction. A nil logger discards
// all log output.
func New(txnID uuid.UUID, log *slog.Logger) *Storage {
	return localstore.New(txnID, log)
}
