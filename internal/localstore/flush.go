package localstore

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/thornfield-data/stagedb/internal/basetable"
	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/pkg/types"
)

// flush drains one table's staging collection into its base table, step by
// step.
func flush(ctx context.Context, txnID uuid.UUID, base basetable.BaseTable, ts *TableStorage, log *slog.Logger) error {
	appended := ts.AddedRows()
	// Step 1: nothing to flush if every staged row was deleted.
	if appended == 0 {
		return nil
	}

	// Step 2: reserve an append region for exactly appended_rows rows.
	state, err := base.InitializeAppend(ctx, txnID, int(appended))
	if err != nil {
		return err
	}
	rowStart := state.RowStart

	// Step 3: scan the staging collection in column-id order, producing
	// chunks; for each, insert into base indexes before appending rows.
	constraintViolated := false
	ts.rows.Scan(func(chunk column.Chunk) bool {
		ok, idxErr := base.AppendToIndexes(chunk, state.CurrentRow)
		if idxErr != nil {
			constraintViolated = true
			err = idxErr
			return false
		}
		if !ok {
			constraintViolated = true
			return false
		}
		if err = base.Append(ctx, state, chunk); err != nil {
			constraintViolated = true
			return false
		}
		return true
	})

	if constraintViolated {
		// Step 4: compensate — remove everything that *was* installed
		// (rows in [rowStart, state.CurrentRow)), revert the reserved
		// region, and report the violation. The caller (Commit) drops the
		// staging entry.
		base.RemoveFromIndexes(rowStart, state.CurrentRow)
		base.RevertAppendInternal(rowStart, int(appended))
		log.Warn("flush aborted on unique conflict", "table", base.Descriptor().Name, "row_start", rowStart)
		if err != nil {
			return err
		}
		return types.NewUniqueConstraintViolationError("PRIMARY KEY or UNIQUE constraint violated: duplicated key", nil)
	}

	// Step 5: success — the transaction manager records an append event
	// (table, row_start, appended_rows) in the WAL.
	log.Info("flush committed", "table", base.Descriptor().Name, "row_start", rowStart, "appended_rows", appended)
	return nil
}
