package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/obiverse/dojo/internal/config"
	"github.com/obiverse/dojo/pkg/catalog"
	"github.com/spf13/cobra"
)

var catalogFile string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List capabilities and contracts",
	Long: `List every capability and summoning contract the dojo would load,
the built-in library merged with catalog.path. No server is needed.`,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFile, "file", "", "catalog file, overrides catalog.path")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	path := catalogFile
	if path == "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		path = cfg.Catalog.Path
	}

	c, err := catalog.LoadMerged(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	printCatalog(cmd.OutOrStdout(), c)
	return nil
}

func printCatalog(out io.Writer, c *catalog.Catalog) {
	heading := color.New(color.FgCyan, color.Bold)
	name := color.New(color.FgGreen)

	heading.Fprintf(out, "Capabilities (%d)\n", len(c.Capabilities))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	caps := append(c.Capabilities[:0:0], c.Capabilities...)
	sort.Slice(caps, func(i, j int) bool { return caps[i].ID() < caps[j].ID() })
	for _, capability := range caps {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			name.Sprint(capability.ID()),
			color.YellowString(capability.Category()),
			strings.Join(capability.Params(), ","),
			capability.Description(),
		)
	}
	tw.Flush()

	fmt.Fprintln(out)
	heading.Fprintf(out, "Contracts (%d)\n", len(c.Contracts))
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, contract := range c.Contracts {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			name.Sprint(contract.ID),
			contract.Name,
			color.YellowString(contract.Model),
			strings.Join(contract.Capabilities, ","),
		)
	}
	tw.Flush()
}

func backendNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Backends))
	for n := range cfg.Backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
