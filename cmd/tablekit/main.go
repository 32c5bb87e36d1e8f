package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/pkg/tablekit"
)

var (
	configPath string
	where      []string
	limit      int
	orderBy    string
	descending bool
	addr       string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tablekit",
	Short: "Inspect and query configured tables",
	Long: `Inspect and query the tables described by a tablekit configuration file.
Without --config the configuration is read from TABLEKIT_* environment variables.`,
	SilenceUsage: true,
}

var schemaCmd = &cobra.Command{
	Use:   "schema <component.name>",
	Short: "Show the columns of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchema,
}

var selectCmd = &cobra.Command{
	Use:   "select <component.name>",
	Short: "Select rows as JSON lines",
	Long:  `Select rows from a table. Each --where field=value adds an equality predicate on an external field name.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSelect,
}

var getCmd = &cobra.Command{
	Use:   "get <component.name> <id>",
	Short: "Fetch one row by id, reading the cache first",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve configured tables over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a .yaml, .yml or .json config file")

	selectCmd.Flags().StringSliceVar(&where, "where", nil, "Equality filter as field=value (repeatable)")
	selectCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows (default: unlimited)")
	selectCmd.Flags().StringVar(&orderBy, "order-by", "", "Field to order by")
	selectCmd.Flags().BoolVar(&descending, "desc", false, "Order descending")

	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(serveCmd)
}

func newClient(ctx context.Context) (tablekit.Client, error) {
	if configPath != "" {
		return tablekit.NewClientFromFile(ctx, configPath)
	}
	config, err := tablekit.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return tablekit.NewClient(ctx, config)
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	t, err := client.Table(ctx, args[0])
	if err != nil {
		return err
	}
	schema, err := t.Schema(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch schema: %w", err)
	}
	identity, err := t.IdentityColumn(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Table: %s (%s, engine %s)\n", t.Name(), schema.Info.Kind, schema.Info.Engine)
	if identity != "" {
		fmt.Fprintf(out, "Identity: %s\n", identity)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tCOLUMN\tTYPE\tUNIQUE\tAUTOINC\tDEFAULT")
	t.MapColumnSet(schema.Columns, true).Each(func(field string, col core.Column) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%v\n", field, col.Name, col.Type, col.Unique, col.AutoInc, col.Default)
	})
	return w.Flush()
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filters, err := parseWhere(where)
	if err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	t, err := client.Table(ctx, args[0])
	if err != nil {
		return err
	}
	q, err := t.Query(ctx)
	if err != nil {
		return err
	}
	q = q.Select()
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		q = q.Where(t.ColumnName(field), "=", filters[field])
	}
	if orderBy != "" {
		q = q.OrderBy(t.ColumnName(orderBy), descending)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	rows, err := t.SelectRowset(ctx, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range rows.Data() {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	rec, err := client.Get(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(rec)
}

// parseWhere turns field=value pairs into a record.
func parseWhere(pairs []string) (core.Record, error) {
	out := make(core.Record, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --where %q, expected field=value", pair)
		}
		out[field] = value
	}
	return out, nil
}
