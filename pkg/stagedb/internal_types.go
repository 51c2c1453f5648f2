package stagedb

import (
	"github.com/thornfield-data/stagedb/internal/basetable"
	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/internal/index"
)

// Re-export internal types an executor needs to call into Storage.
// These are NOT part of the stable surface beyond that purpose.

type LogicalType = column.LogicalType
type Value = column.Value
type Row = column.Row
type Chunk = column.Chunk
type ScanState = column.ScanState
type ParallelScanState = column.ParallelScanState
type LocalScanState = column.LocalScanState
type Filter = column.Filter

const (
	TypeInt32   = column.TypeInt32
	TypeInt64   = column.TypeInt64
	TypeFloat64 = column.TypeFloat64
	TypeBool    = column.TypeBool
	TypeVarchar = column.TypeVarchar
)

type IndexDescriptor = index.Descriptor

type TableDescriptor = basetable.TableDescriptor
type BaseTable = basetable.BaseTable
type CommittedMutator = basetable.CommittedMutator
type AppendState = basetable.AppendState
type MemTable = basetable.MemTable

var NewMemTable = basetable.NewMemTable
