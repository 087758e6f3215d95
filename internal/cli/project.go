package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/saltproc/internal/config"
	"github.com/kingrea/saltproc/internal/reprocess"
)

func initCmd() *cobra.Command {
	var dir string

	c := &cobra.Command{
		Use:   "init",
		Short: "Write an example project, topology and material snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.WriteExample(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project: %s\n", path)
			return nil
		},
	}

	c.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the example into")
	return c
}

func validateCmd() *cobra.Command {
	var configPath string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Load the project and check every material's flowsheet (no step is run)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, plans, err := loadPlans(configPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range plans {
				printPlan(w, p)
			}
			fmt.Fprintln(w, "OK")
			return nil
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Project file")
	return c
}

func pathsCmd() *cobra.Command {
	var configPath string
	var material string

	c := &cobra.Command{
		Use:   "paths",
		Short: "List the source-to-sink paths of a material with their divisors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			plan, err := cfg.Plan(nil, material)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Project file")
	c.Flags().StringVarP(&material, "material", "m", "", "Material name (required)")
	_ = c.MarkFlagRequired("material")
	return c
}

func loadPlans(configPath string) (*config.Config, []*reprocess.Plan, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	plans, err := cfg.Plans(nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, plans, nil
}

func printPlan(w io.Writer, p *reprocess.Plan) {
	fmt.Fprintf(w, "%s (total flow rate %g g/s, %d feed(s))\n", p.Material(), p.TotalFlowrate(), len(p.Feeds()))
	for _, r := range p.Routes() {
		route := "(bypass)"
		if !r.Bypass() {
			route = strings.Join(r.Units, " -> ")
		}
		fmt.Fprintf(w, "  %.6f  %s\n", r.Divisor, route)
	}
}
