// Package cli implements the docbridge command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/docbridge"
	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/internal/config"
	"github.com/hugr-lab/docbridge/mongotable"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "docbridge",
		Short:         "Serve document collections as typed tables",
		Long:          "docbridge exposes document collections to DuckDB through the Airport Arrow Flight protocol.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "docbridge.yaml", "config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	return config.ReadInConfig(opts.ConfigFile)
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// buildCatalog registers every configured table. Connections are resolved
// but not opened.
func buildCatalog(cfg *config.Config, clients *mongotable.ClientCache, logger *slog.Logger) (catalog.Catalog, error) {
	tableOpts, err := cfg.TableOptions(logger)
	if err != nil {
		return nil, err
	}
	builder := docbridge.NewCatalogBuilder().Mongo(docbridge.MongoConfig{
		Resolver: cfg.Resolver(),
		Clients:  clients,
		Options:  &tableOpts,
	})
	for _, sc := range cfg.Schemas {
		defs, err := sc.TableDefs()
		if err != nil {
			return nil, err
		}
		sb := builder.Schema(sc.Name).Comment(sc.Comment)
		for _, def := range defs {
			sb.MongoTable(def)
		}
	}
	cat, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return cat, nil
}
