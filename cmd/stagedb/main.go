package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"github.com/thornfield-data/stagedb/internal/basetable"
	"github.com/thornfield-data/stagedb/internal/column"
	"github.com/thornfield-data/stagedb/internal/index"
	"github.com/thornfield-data/stagedb/internal/localstore"
	"github.com/thornfield-data/stagedb/pkg/types"
)

// main is the CLI entry point. Routes to subcommand handlers.
// Results go to stdout, logs and errors to stderr; exit codes are 0/1.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: stagedb <command> [arguments]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  demo --columns <spec> --unique <cols> --rows <file.json>  - run a stage/scan/commit cycle")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		handleDemo()
	default:
		printError(types.NewInvalidInputError(fmt.Sprintf("unknown command: %s", os.Args[1]), nil))
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: lvl, TimeFormat: time.Kitchen}))
}

// handleDemo implements the 'demo' command: builds a table from a
// "name:type,name:type" column spec, appends the rows in a JSON array of
// arrays, prints the staged view, commits, then prints the committed view.
func handleDemo() {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	columnsFlag := fs.String("columns", "", "comma-separated name:type pairs, e.g. id:int64,name:varchar")
	uniqueFlag := fs.String("unique", "", "comma-separated column names forming the unique index")
	rowsFlag := fs.String("rows", "", "path to a JSON file containing an array of row arrays")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	_ = fs.Parse(os.Args[2:])

	log := newLogger(*logLevel)

	if *columnsFlag == "" {
		printError(types.NewInvalidInputError("missing required flag: --columns", nil))
	}
	if *rowsFlag == "" {
		printError(types.NewInvalidInputError("missing required flag: --rows", nil))
	}

	names, colTypes, err := parseColumns(*columnsFlag)
	if err != nil {
		printError(err)
	}
	uniqueIdx := parseUnique(*uniqueFlag, names)

	desc := basetable.TableDescriptor{
		ID:          uuid.New(),
		Name:        "demo",
		ColumnTypes: colTypes,
		Indexes:     uniqueIdx,
	}
	table := basetable.NewMemTable(desc)

	rows, err := loadRows(*rowsFlag, colTypes)
	if err != nil {
		printError(err)
	}

	txnID := uuid.New()
	storage := localstore.New(txnID, log)

	if err := storage.Append(table, rows); err != nil {
		printError(err)
	}
	log.Info("staged rows", "count", len(rows), "estimated_size", storage.EstimatedSize())

	printStagedScan(storage, table, names)

	var walEvents []localstore.WALAppendEvent
	if err := storage.Commit(context.Background(), func(ev localstore.WALAppendEvent) {
		walEvents = append(walEvents, ev)
	}); err != nil {
		printError(err)
	}
	for _, ev := range walEvents {
		log.Info("flushed", "table", ev.TableName, "row_start", ev.RowStart, "appended_rows", ev.AppendedRows)
	}

	printCommitted(table, names)
	os.Exit(0)
}

func parseColumns(spec string) ([]string, []column.LogicalType, error) {
	parts := strings.Split(spec, ",")
	names := make([]string, 0, len(parts))
	types_ := make([]column.LogicalType, 0, len(parts))
	for _, p := range parts {
		nt := strings.SplitN(strings.TrimSpace(p), ":", 2)
		if len(nt) != 2 {
			return nil, nil, types.NewInvalidInputError(fmt.Sprintf("malformed column spec: %q", p), nil)
		}
		lt, err := parseLogicalType(nt[1])
		if err != nil {
			return nil, nil, err
		}
		names = append(names, nt[0])
		types_ = append(types_, lt)
	}
	return names, types_, nil
}

func parseLogicalType(s string) (column.LogicalType, error) {
	switch strings.ToLower(s) {
	case "int32":
		return column.TypeInt32, nil
	case "int64":
		return column.TypeInt64, nil
	case "float64":
		return column.TypeFloat64, nil
	case "bool":
		return column.TypeBool, nil
	case "varchar":
		return column.TypeVarchar, nil
	default:
		return 0, types.NewInvalidInputError(fmt.Sprintf("unknown column type: %q", s), nil)
	}
}

func parseUnique(spec string, names []string) []index.Descriptor {
	if spec == "" {
		return nil
	}
	wanted := strings.Split(spec, ",")
	colIDs := make([]int, 0, len(wanted))
	for _, w := range wanted {
		for i, n := range names {
			if n == strings.TrimSpace(w) {
				colIDs = append(colIDs, i)
			}
		}
	}
	return []index.Descriptor{{Name: "unique_" + spec, ColumnIDs: colIDs, IsUnique: true}}
}

// loadRows reads a JSON array of arrays, converting each element to the
// column's native Go type. A JSON null maps to SQL NULL.
func loadRows(path string, colTypes []column.LogicalType) ([]column.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewInvalidInputError(fmt.Sprintf("failed to read %s", path), err)
	}
	var raw [][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, types.NewInvalidInputError("rows file must be a JSON array of arrays", err)
	}
	rows := make([]column.Row, 0, len(raw))
	for _, r := range raw {
		if len(r) != len(colTypes) {
			return nil, types.NewInvalidInputError("row width does not match column count", nil)
		}
		row := make(column.Row, len(r))
		for i, v := range r {
			row[i] = coerce(colTypes[i], v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// coerce converts a decoded JSON value (float64, string, bool, nil) to the
// Go native type Vector.Append expects for t.
func coerce(t column.LogicalType, v any) column.Value {
	if v == nil {
		return nil
	}
	switch t {
	case column.TypeInt32:
		return int32(v.(float64))
	case column.TypeInt64:
		return int64(v.(float64))
	case column.TypeFloat64:
		return v.(float64)
	case column.TypeBool:
		return v.(bool)
	case column.TypeVarchar:
		return v.(string)
	default:
		return v
	}
}

func printStagedScan(storage *localstore.Storage, table *basetable.MemTable, names []string) {
	fmt.Println("-- staged (uncommitted) --")
	columnIDs := make([]int, len(names))
	for i := range columnIDs {
		columnIDs[i] = i
	}
	state := storage.InitializeScan(table, columnIDs, nil)
	for {
		chunk, ok := state.Next()
		if !ok {
			break
		}
		for i, rowID := range chunk.RowIDs {
			printRow(rowID, chunk.Columns, i, names)
		}
	}
}

func printCommitted(table *basetable.MemTable, names []string) {
	fmt.Println("-- committed --")
	for i, row := range table.Rows() {
		fmt.Printf("row %d: ", i)
		for ci, v := range row {
			fmt.Printf("%s=%v ", names[ci], v)
		}
		fmt.Println()
	}
}

func printRow(rowID int64, cols []*column.Vector, i int, names []string) {
	fmt.Printf("row %d: ", rowID)
	for ci, v := range cols {
		fmt.Printf("%s=%v ", names[ci], v.At(i))
	}
	fmt.Println()
}
