package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/Fxcilities/state-pool/pkg/persist"
)

func dumpCmd() *cobra.Command {
	var (
		filePath   string
		sqlitePath string
		tableName  string
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the contents of a durable state store",
		Long: `Dump reads a state store written by the state-pool library and prints
every key with its saved JSON value.

Examples:

  statepool dump --file app-state.json
  statepool dump --sqlite app.db
  statepool dump --sqlite app.db --table my_states`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case filePath != "" && sqlitePath != "":
				return fmt.Errorf("pass either --file or --sqlite, not both")
			case filePath != "":
				return dumpFile(filePath)
			case sqlitePath != "":
				return dumpSQLite(sqlitePath, tableName)
			default:
				return fmt.Errorf("pass --file or --sqlite")
			}
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "path to a JSON state document")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "path to a SQLite database")
	cmd.Flags().StringVar(&tableName, "table", "statepool_states", "state table name (with --sqlite)")
	return cmd
}

func dumpFile(path string) error {
	storage, err := persist.NewFileStorage(path)
	if err != nil {
		return err
	}
	printEntries(storage.Entries())
	success("%d state(s) in %s", len(storage.Entries()), path)
	return nil
}

func dumpSQLite(path, table string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	storage := persist.NewSQLStorage(db,
		persist.WithSQLDialect(persist.DialectSQLite),
		persist.WithSQLTableName(table),
	)
	entries, err := storage.Entries()
	if err != nil {
		return err
	}
	printEntries(entries)
	success("%d state(s) in %s", len(entries), path)
	return nil
}

func printEntries(entries map[string]json.RawMessage) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		info("%s = %s", k, entries[k])
	}
}
