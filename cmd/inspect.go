package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var inspectPreview int

var inspectCmd = &cobra.Command{
	Use:   "inspect [database-path]",
	Short: "Inspect the sqlite store's tables and keys",
	Long: `Inspect a msghelp sqlite database: tables, the kv schema and every stored
key with a preview of its value. Defaults to the configured database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var dbPath string
		if len(args) > 0 {
			dbPath = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Type != internal.StoreTypeSQLite {
				return fmt.Errorf("inspect needs a sqlite store, configured store is %s", cfg.Store.Type)
			}
			dbPath = cfg.Store.Path
		}

		return inspectDatabase(cmd.OutOrStdout(), dbPath)
	},
}

func inspectDatabase(w io.Writer, dbPath string) error {
	db, err := internal.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := getTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}

	fmt.Fprintf(w, "📋 Database: %s\n", dbPath)
	fmt.Fprintf(w, "📊 Found %d table(s): %s\n\n", len(tables), strings.Join(tables, ", "))

	columns, err := getTableSchema(db, "kv")
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	fmt.Fprintf(w, "📐 Schema (kv):\n")
	for _, col := range columns {
		pk := ""
		if col.PrimaryKey {
			pk = " [PRIMARY KEY]"
		}
		notNull := ""
		if col.NotNull {
			notNull = " NOT NULL"
		}
		fmt.Fprintf(w, "  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
	}
	fmt.Fprintln(w)

	return showKeys(w, db)
}

func getTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

func getTableSchema(db *sql.DB, tableName string) ([]ColumnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var cid int
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk == 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func showKeys(w io.Writer, db *sql.DB) error {
	rows, err := db.Query("SELECT key, value FROM kv ORDER BY key")
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	fmt.Fprintf(w, "🔑 Keys:\n")
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			fmt.Fprintf(w, "  ⚠️  error scanning row: %v\n", err)
			continue
		}

		if key == internal.KeyMessages {
			msgs, err := internal.ParseMessages([]byte(value))
			if err != nil {
				fmt.Fprintf(w, "  • %s: %d bytes (undecodable: %v)\n", key, len(value), err)
				continue
			}
			fmt.Fprintf(w, "  • %s: %d bytes, %d message(s) in %d conversation(s)\n",
				key, len(value), len(msgs), len(summarizeSessions(msgs)))
			continue
		}

		fmt.Fprintf(w, "  • %s: %s\n", key, preview(value, inspectPreview))
	}
	return rows.Err()
}

// preview shortens a value to its first line and at most n bytes
func preview(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	if n > 0 && len(s) > n {
		s = s[:n] + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectPreview, "preview", 200, "Maximum characters of each value to show")
}
