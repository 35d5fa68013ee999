package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/galley/internal/application"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the active checklist",
		Long: `catalog prints the checklist that check would evaluate: the built-in
catalog, or the file named by --catalog / engine.catalog_file.`,
	}
	cmd.PersistentFlags().String("catalog", "", "YAML catalog file replacing the built-in checklist")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List criteria in evaluation order",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				c, err := loadCatalog(a.cfg, nil)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tKIND\tSEVERITY\tEXTRACTOR\tDESCRIPTION")
				for _, crit := range c.All() {
					m := crit.Meta()
					extractor := m.Extractor.String()
					if extractor == "" {
						extractor = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, crit.Kind(), m.Severity, extractor, m.Description)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one criterion as YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				c, err := loadCatalog(a.cfg, nil)
				if err != nil {
					return err
				}
				crit, ok := c.Get(args[0])
				if !ok {
					return fmt.Errorf("unknown criterion %q", args[0])
				}
				enc := yaml.NewEncoder(a.out)
				enc.SetIndent(2)
				if err := enc.Encode(application.SpecFor(crit)); err != nil {
					return fmt.Errorf("encode criterion: %w", err)
				}
				return enc.Close()
			},
		},
		&cobra.Command{
			Use:   "export",
			Short: "Write the catalog as a YAML file accepted by --catalog",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				c, err := loadCatalog(a.cfg, nil)
				if err != nil {
					return err
				}
				return application.ExportCatalog(a.out, c)
			},
		},
	)
	return cmd
}
