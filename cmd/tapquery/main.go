// Command tapquery runs ADQL queries against any TAP service from the
// command line.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	gotap "github.com/astropy/astroquery-sub004"
)

var (
	flagDSN     string
	flagFormat  string
	flagMaxRec  int
	flagAsync   bool
	flagTimeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "tapquery",
		Short:         "Query IVOA TAP services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addConnectionFlags(root.PersistentFlags())

	root.AddCommand(newQueryCmd(), newTablesCmd(), newJobsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConnectionFlags(flags *pflag.FlagSet) {
	flags.StringVar(&flagDSN, "dsn", "", "service DSN, e.g. gea.esac.esa.int/tap-server/tap (defaults to connections.toml)")
	flags.DurationVar(&flagTimeout, "timeout", 10*time.Minute, "overall command timeout")
}

func openConn() (*gotap.Conn, error) {
	if flagDSN != "" {
		return gotap.Open(flagDSN)
	}
	cfg, err := gotap.LoadConnectionConfig()
	if err != nil {
		return nil, err
	}
	return gotap.OpenWithConfig(cfg)
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() { stop(); cancel() }
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <adql>",
		Short: "Run an ADQL query and print the result as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			conn, err := openConn()
			if err != nil {
				return err
			}
			opts := &gotap.QueryOptions{
				Format: gotap.OutputFormat(flagFormat),
				MaxRec: flagMaxRec,
			}

			var table *gotap.Table
			if flagAsync {
				job, err := conn.QueryAsync(ctx, args[0], opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, "job:", job.ID)
				if _, err = job.Wait(ctx); err != nil {
					return err
				}
				table, err = job.Results(ctx)
				if err != nil {
					return err
				}
			} else {
				table, err = conn.Query(ctx, args[0], opts)
				if err != nil {
					return err
				}
			}
			return printTable(table)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "votable", "output format requested from the service")
	cmd.Flags().IntVar(&flagMaxRec, "maxrec", 0, "row limit (0 leaves the service default)")
	cmd.Flags().BoolVar(&flagAsync, "async", false, "submit as an asynchronous job and wait")
	return cmd
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables the service publishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			conn, err := openConn()
			if err != nil {
				return err
			}
			tables, err := conn.LoadTables(ctx)
			if err != nil {
				return err
			}
			for _, table := range tables {
				fmt.Printf("%s\t%d columns\n", table.QualifiedName(), len(table.Columns))
			}
			return nil
		},
	}
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List asynchronous jobs known to the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			conn, err := openConn()
			if err != nil {
				return err
			}
			jobs, err := conn.ListJobs(ctx)
			if err != nil {
				return err
			}
			for _, job := range jobs {
				fmt.Printf("%s\t%s\n", job.ID, job.Phase)
			}
			return nil
		},
	}
}

func printTable(table *gotap.Table) error {
	w := csv.NewWriter(os.Stdout)
	header := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		header = append(header, col.Name)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
