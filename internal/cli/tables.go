package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/docbridge/mongotable"
)

// TableInfo describes one configured table. Target is redacted.
type TableInfo struct {
	Schema  string   `json:"schema"`
	Table   string   `json:"table"`
	Target  string   `json:"target"`
	Columns []string `json:"columns"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the configured tables and their resolved connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := listTables(rootOpts)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			return printTables(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func listTables(opts *RootOptions) ([]TableInfo, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clients, err := mongotable.NewClientCache(1, logger)
	if err != nil {
		return nil, err
	}
	defer clients.Close()

	cat, err := buildCatalog(cfg, clients, logger)
	if err != nil {
		return nil, err
	}
	return describe(cat)
}

func printTables(w io.Writer, infos []TableInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEMA\tTABLE\tTARGET\tCOLUMNS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", info.Schema, info.Table, info.Target, len(info.Columns))
	}
	return tw.Flush()
}
