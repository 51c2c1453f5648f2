package column

import (
	"fmt"

	"github.com/kelindar/bitmap"

	"github.com/thornfield-data/stagedb/pkg/types"
)

// Value is a single cell, boxed as the Go type that corresponds to its
// column's LogicalType (int32, int64, float64, bool, or string). A nil value
// represents SQL NULL.
type Value any

// Vector is an append-only typed column of staged values. Nulls are tracked
// in a word-aligned validity bitmap rather than as a sentinel value, the way
// github.com/kelindar/column tracks per-row column presence — this keeps
// null-checking branch-free for dense columns and cheap to bulk-clear when a
// row group is discarded.
type Vector struct {
	Type     LogicalType
	data     []Value
	validity bitmap.Bitmap // bit set => value at that index is non-null
}

// NewVector creates an empty vector of the given logical type.
func NewVector(t LogicalType) *Vector {
	return &Vector{Type: t}
}

// Len returns the number of values appended to the vector.
func (v *Vector) Len() int {
	return len(v.data)
}

// Append adds one value, validating it matches the vector's logical type.
func (v *Vector) Append(val Value) error {
	if val != nil {
		if err := checkType(v.Type, val); err != nil {
			return err
		}
	}
	idx := uint32(len(v.data))
	v.data = append(v.data, val)
	if val != nil {
		v.validity.Set(idx)
	}
	return nil
}

// At returns the value at the given local index, or nil if it is null.
func (v *Vector) At(i int) Value {
	return v.data[i]
}

// IsNull reports whether the value at the given local index is null.
func (v *Vector) IsNull(i int) bool {
	return !v.validity.Contains(uint32(i))
}

// Set overwrites the value at the given local index, used by in-place
// updates on staged rows.
func (v *Vector) Set(i int, val Value) error {
	if val != nil {
		if err := checkType(v.Type, val); err != nil {
			return err
		}
		v.validity.Set(uint32(i))
	} else {
		v.validity.Remove(uint32(i))
	}
	v.data[i] = val
	return nil
}

func checkType(t LogicalType, val Value) error {
	ok := false
	switch t {
	case TypeInt32:
		_, ok = val.(int32)
	case TypeInt64:
		_, ok = val.(int64)
	case TypeFloat64:
		_, ok = val.(float64)
	case TypeBool:
		_, ok = val.(bool)
	case TypeVarchar:
		_, ok = val.(string)
	default:
		return types.NewInternalInvariantError(fmt.Sprintf("unknown logical type %v", t), nil)
	}
	if !ok {
		return types.NewInvalidInputError(fmt.Sprintf("value %v (%T) does not match column type %s", val, val, t), nil)
	}
	return nil
}
