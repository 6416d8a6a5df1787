package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fdb-go/internal/app"
	"fdb-go/internal/config"
	"fdb-go/internal/record"
	"fdb-go/internal/recovery"
	"fdb-go/internal/schema"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Insert", "Rollback").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// confirm prompts for a y/N answer on stdin. The --yes flag skips the
// prompt. A declined prompt is not an error; the caller prints "cancelled"
// and does nothing.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// readPassphrase reads a passphrase without echo when stdin is a terminal,
// falling back to a plain line read otherwise.
func readPassphrase(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(raw), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parseColumns turns NAME:TYPE[:PK] arguments into schema columns.
func parseColumns(args []string) ([]schema.Column, error) {
	columns := make([]schema.Column, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("column %q: want NAME:TYPE or NAME:TYPE:PK", arg)
		}
		typ, err := record.ParseFieldType(parts[1])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", arg, err)
		}
		col := schema.Column{Name: parts[0], Type: typ}
		if len(parts) == 3 {
			if !strings.EqualFold(parts[2], "PK") {
				return nil, fmt.Errorf("column %q: third field must be PK", arg)
			}
			col.PK = true
		}
		columns = append(columns, col)
	}
	return columns, nil
}

var rootCmd = &cobra.Command{
	Use:   "fdb",
	Short: "File-backed record store",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:   %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("History:    %s (%s)\n", cfg.History.Type, cfg.HistoryPath())
		if cfg.Encryption.Type != "" {
			fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		}
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage databases",
}

var dbCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CreateDatabase")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CreateDatabase(args[0]); err != nil {
			return err
		}
		fmt.Printf("Created database: %s\n", args[0])
		return nil
	},
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListDatabases")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.ListDatabases()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No databases.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-30s  %3d table(s)  created:%s  modified:%s\n",
				e.Name,
				e.TableCount,
				time.Unix(e.CreatedAt, 0).UTC().Format("2006-01-02 15:04:05"),
				time.Unix(e.ModifiedAt, 0).UTC().Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

var dbDropCmd = &cobra.Command{
	Use:   "drop NAME",
	Short: "Drop a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hard, _ := cmd.Flags().GetBool("hard")

		verb := "Soft-drop"
		if hard {
			verb = "Permanently drop"
		}
		ok, err := confirm(cmd, fmt.Sprintf("%s database %q?", verb, args[0]))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("cancelled")
			return nil
		}

		a, err := newApp("DropDatabase")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DropDatabase(args[0], hard); err != nil {
			return err
		}
		fmt.Printf("Dropped database: %s\n", args[0])
		return nil
	},
}

// table command
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage tables",
}

var tableCreateCmd = &cobra.Command{
	Use:   "create DATABASE TABLE COLUMN:TYPE[:PK]...",
	Short: "Create a table",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkColumn, _ := cmd.Flags().GetString("pk")

		columns, err := parseColumns(args[2:])
		if err != nil {
			return err
		}

		a, err := newApp("CreateTable")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CreateTable(args[0], args[1], columns, pkColumn); err != nil {
			return err
		}
		fmt.Printf("Created table %s.%s with %d column(s)\n", args[0], args[1], len(columns))
		return nil
	},
}

var tableDropCmd = &cobra.Command{
	Use:   "drop DATABASE TABLE",
	Short: "Drop a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := confirm(cmd, fmt.Sprintf("Drop table %s.%s?", args[0], args[1]))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("cancelled")
			return nil
		}

		a, err := newApp("DropTable")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DropTable(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Dropped table %s.%s\n", args[0], args[1])
		return nil
	},
}

// insert command
var insertCmd = &cobra.Command{
	Use:   "insert DATABASE TABLE VALUE...",
	Short: "Insert a record",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Insert")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Insert(args[0], args[1], args[2:]); err != nil {
			return err
		}
		fmt.Println("1 record inserted")
		return nil
	},
}

// select command
var selectCmd = &cobra.Command{
	Use:   "select DATABASE TABLE",
	Short: "Query records",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		columnsFlag, _ := cmd.Flags().GetString("columns")
		whereFlag, _ := cmd.Flags().GetString("where")

		var positions []int
		if columnsFlag != "" {
			for _, part := range strings.Split(columnsFlag, ",") {
				n, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					return fmt.Errorf("--columns: %q is not a position", part)
				}
				positions = append(positions, n)
			}
		}

		var filterColumn, filterValue string
		if whereFlag != "" {
			var found bool
			filterColumn, filterValue, found = strings.Cut(whereFlag, "=")
			if !found || filterColumn == "" {
				return fmt.Errorf("--where: want COLUMN=VALUE, got %q", whereFlag)
			}
		}

		a, err := newApp("Select")
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.Select(args[0], args[1], positions, filterColumn, filterValue)
		if err != nil {
			return err
		}
		defer rows.Close()

		fmt.Println(strings.Join(rows.Columns(), "\t"))
		count := 0
		for rows.Next() {
			fmt.Println(strings.Join(rows.Row(), "\t"))
			count++
		}
		if err := rows.Err(); err != nil {
			return err
		}
		fmt.Printf("%d record(s)\n", count)
		return nil
	},
}

// update command
var updateCmd = &cobra.Command{
	Use:   "update DATABASE TABLE PK COLUMN VALUE",
	Short: "Update one column of a record",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Update")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Update(args[0], args[1], args[2], args[3], args[4]); err != nil {
			return err
		}
		fmt.Println("1 record updated")
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete DATABASE TABLE PK",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := confirm(cmd, fmt.Sprintf("Delete record %s from %s.%s?", args[2], args[0], args[1]))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("cancelled")
			return nil
		}

		a, err := newApp("Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Delete(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Println("1 record deleted")
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create DATABASE [TABLE]",
	Short: "Snapshot a database or a single table",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		scope := recovery.ScopeDB
		table := ""
		if len(args) == 2 {
			scope = recovery.ScopeTable
			table = args[1]
		}

		a, err := newApp("CreateSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.CreateSnapshot(scope, args[0], table, description)
		if err != nil {
			return err
		}
		fmt.Printf("Created snapshot: %s\n", m.Name)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list [SOURCE]",
	Short: "List snapshots, optionally filtered by database or database_table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := ""
		if len(args) == 1 {
			source = args[0]
		}

		a, err := newApp("ListSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		metas, err := a.ListSnapshots(source)
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, m := range metas {
			fmt.Printf("%-50s  %-5s  %s  %s\n", m.Name, m.Scope, m.Created, m.Description)
		}
		return nil
	},
}

var snapshotRollbackCmd = &cobra.Command{
	Use:   "rollback NAME",
	Short: "Restore live state from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := confirm(cmd, fmt.Sprintf("Replace live data with snapshot %q?", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("cancelled")
			return nil
		}

		a, err := newApp("Rollback")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Rollback(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Rolled back to snapshot: %s\n", result.Restored.Name)
		if result.Backup != nil {
			fmt.Printf("Pre-rollback state saved as: %s\n", result.Backup.Name)
		}
		return nil
	},
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push NAME",
	Short: "Upload a snapshot archive to the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PushSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.PushSnapshot(args[0]); err != nil {
			return err
		}
		fmt.Printf("Pushed snapshot: %s\n", args[0])
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull NAME",
	Short: "Download a snapshot archive from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PullSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.EncryptionConfigured() {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		m, err := a.PullSnapshot(args[0], passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Pulled snapshot: %s\n", m.Name)
		return nil
	},
}

var snapshotRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List snapshot archives stored in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListVault")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListVault()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("Vault is empty.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		for _, e := range entries {
			target := e.Database
			if e.Table != "" {
				target += "." + e.Table
			}
			fmt.Printf("%s  %-16s  %-20s  %-7s  %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Operation,
				target,
				e.Status,
				e.Parameters,
			)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair used to encrypt pushed snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		again, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != again {
			return fmt.Errorf("passphrases do not match")
		}

		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetupKeys(passphrase); err != nil {
			return err
		}
		fmt.Println("Key pair generated.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	dbCmd.AddCommand(dbCreateCmd)
	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbDropCmd)
	dbDropCmd.Flags().Bool("hard", false, "Remove the directory instead of tombstoning")
	dbDropCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	tableCmd.AddCommand(tableCreateCmd)
	tableCmd.AddCommand(tableDropCmd)
	tableCreateCmd.Flags().String("pk", "", "Designate an int column as primary key")
	tableDropCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	selectCmd.Flags().String("columns", "", "Comma-separated 1-based column positions")
	selectCmd.Flags().String("where", "", "Equality filter, COLUMN=VALUE")

	deleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRollbackCmd)
	snapshotCmd.AddCommand(snapshotPushCmd)
	snapshotCmd.AddCommand(snapshotPullCmd)
	snapshotCmd.AddCommand(snapshotRemoteCmd)
	snapshotCreateCmd.Flags().StringP("description", "m", "", "Snapshot description")
	snapshotRollbackCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")

	keysCmd.AddCommand(keysInitCmd)

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(keysCmd)
}
