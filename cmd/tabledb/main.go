package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tabledb/internal/engine"
	"tabledb/pkg/dberrors"
	"tabledb/pkg/schema"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
)

type globalFlags struct {
	configPath string
	dataDir    string
}

type tableFlags struct {
	schemaID uint32
	tableID  uint64
	name     string
}

func (f *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&f.schemaID, "schema-id", 0, "schema the table belongs to")
	cmd.Flags().Uint64Var(&f.tableID, "table-id", 0, "table id")
	cmd.Flags().StringVar(&f.name, "name", "", "table name")
	_ = cmd.MarkFlagRequired("table-id")
	_ = cmd.MarkFlagRequired("name")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:          "tabledb",
		Short:        "Analytic table engine CLI",
		Long:         "tabledb creates, opens, writes to and drops tables of the analytic engine.",
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "config.yaml", "path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "override storage.data_dir")

	rootCmd.AddCommand(
		newCreateCmd(g),
		newOpenCmd(g),
		newCloseCmd(g),
		newDropCmd(g),
		newWriteCmd(g),
		newScanCmd(g),
		newTablesCmd(g),
	)
	return rootCmd
}

// withEngine opens the engine, runs f and closes the engine.
func withEngine(ctx context.Context, g *globalFlags, f func(e *engine.TableEngineImpl) error) (err error) {
	cfg, err := initConfig(g.configPath, g.dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := initLogger(&cfg)

	e, err := engine.Open(ctx, cfg, engine.OpenOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() {
		err = errors.Join(err, e.Close(context.WithoutCancel(ctx)))
	}()

	return f(e)
}

func openTable(ctx context.Context, e *engine.TableEngineImpl, f *tableFlags) (tableengine.Table, error) {
	tbl, err := e.OpenTable(ctx, tableengine.OpenTableRequest{
		SchemaID:  types.SchemaID(f.schemaID),
		TableID:   types.TableID(f.tableID),
		TableName: f.name,
		Engine:    tableengine.AnalyticEngineType,
	})
	if err != nil {
		return nil, err
	}
	if tbl == nil {
		return nil, fmt.Errorf("table %s: %w", f.name, dberrors.ErrNotFound)
	}
	return tbl, nil
}

func newCreateCmd(g *globalFlags) *cobra.Command {
	var (
		tf      tableFlags
		columns []string
		opts    []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a table",
		Example: "  tabledb create --table-id 1 --name cpu \\\n" +
			"    --column host:string:key --column ts:timestamp:key --column usage:float64 \\\n" +
			"    --opt ttl=3d",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := parseColumns(columns)
			if err != nil {
				return err
			}
			options, err := parseOptions(opts)
			if err != nil {
				return err
			}

			return withEngine(cmd.Context(), g, func(e *engine.TableEngineImpl) error {
				tbl, err := e.CreateTable(cmd.Context(), tableengine.CreateTableRequest{
					SchemaID:  types.SchemaID(tf.schemaID),
					TableID:   types.TableID(tf.tableID),
					TableName: tf.name,
					Schema:    s,
					Options:   options,
					Engine:    tableengine.AnalyticEngineType,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created table %s (id %d) options %v\n", tbl.Name(), tbl.ID(), tbl.Options())
				return nil
			})
		},
	}
	tf.register(cmd)
	cmd.Flags().StringArrayVar(&columns, "column", nil, "column as name:kind[:key][:nullable], repeatable")
	cmd.Flags().StringArrayVar(&opts, "opt", nil, "table option as key=value, repeatable")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newOpenCmd(g *globalFlags) *cobra.Command {
	var tf tableFlags
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a table and print its description",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), g, func(e *engine.TableEngineImpl) error {
				tbl, err := openTable(cmd.Context(), e, &tf)
				if err != nil {
					return err
				}
				s := tbl.Schema()
				fmt.Fprintf(cmd.OutOrStdout(), "table %s (id %d) schema %s options %v\n", tbl.Name(), tbl.ID(), s.String(), tbl.Options())
				return nil
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func newCloseCmd(g *globalFlags) *cobra.Command {
	var tf tableFlags
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), g, func(e *engine.TableEngineImpl) error {
				if _, err := openTable(cmd.Context(), e, &tf); err != nil {
					return err
				}
				return e.CloseTable(cmd.Context(), tableengine.CloseTableRequest{
					SchemaID:  types.SchemaID(tf.schemaID),
					TableID:   types.TableID(tf.tableID),
					TableName: tf.name,
					Engine:    tableengine.AnalyticEngineType,
				})
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func newDropCmd(g *globalFlags) *cobra.Command {
	var tf tableFlags
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), g, func(e *engine.TableEngineImpl) error {
				dropped, err := e.DropTable(cmd.Context(), tableengine.DropTableRequest{
					SchemaID:  types.SchemaID(tf.schemaID),
					TableID:   types.TableID(tf.tableID),
					TableName: tf.name,
					Engine:    tableengine.AnalyticEngineType,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dropped: %t\n", dropped)
				return nil
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func newWriteCmd(g *globalFlags) *cobra.Command {
	var (
		tf    tableFlags
		lines []string
	)
	cmd := &cobra.Command{
		Use:     "write",
		Short:   "Write rows into a table",
		Example: "  tabledb write --table-id 1 --name cpu --row host-1,1700000000,0.5",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), g, func(e *engine.TableEngineImpl) error {
				tbl, err := openTable(cmd.Context(), e, &tf)
				if err != nil {
					return err
				}

				s := tbl.Schema()
				rows := make([]schema.Row, 0, len(lines))
				for _, line := range lines {
					row, err := parseRow(s, line)
					if err != nil {
						return err
					}
					rows = append(rows, row)
				}

				n, err := tbl.Write(cmd.Context(), rows)
				if err != nil {
					return err
				}
				slog.Debug("rows written", "table", tbl.Name(), "rows", n)
				fmt.Fprintf(cmd.OutOrStdout(), "written %d rows\n", n)
				return nil
			})
		},
	}
	tf.register(cmd)
	cmd.Flags().StringArrayVar(&lines, "row", nil, "comma separated row values, repeatable")
	_ = cmd.MarkFlagRequired("row")
	return cmd
}

func newScanCmd(g *globalFlags) *cobra.Command {
	var tf tableFlags
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print the buffered rows of a table in key order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), g, func(e *engine.TableEngineImpl) error {
				tbl, err := openTable(cmd.Context(), e, &tf)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				return tbl.Scan(func(row schema.Row) bool {
					fmt.Fprintln(out, formatRow(row))
					return true
				})
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func newTablesCmd(g *globalFlags) *cobra.Command {
	var schemaID uint32
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables stored for a schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), g, func(e *engine.TableEngineImpl) error {
				for _, t := range e.Tables(types.SchemaID(schemaID)) {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", t.ID, t.TableName, t.Schema.String())
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&schemaID, "schema-id", 0, "schema to list")
	return cmd
}
