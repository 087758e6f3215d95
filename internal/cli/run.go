package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/saltproc/internal/config"
	"github.com/kingrea/saltproc/internal/logbook"
	"github.com/kingrea/saltproc/internal/logging"
	"github.com/kingrea/saltproc/internal/metric"
	"github.com/kingrea/saltproc/internal/reprocess"
	"github.com/kingrea/saltproc/internal/tui"
)

const defaultJournalLines = 20

func runCmd() *cobra.Command {
	var configPath string
	var materialsPath string
	var out string
	var metricsFile string
	var nextPath string
	var parallelism int
	var journalLines int

	c := &cobra.Command{
		Use:   "run",
		Short: "Run one reprocessing step over a material snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, plans, err := loadPlans(configPath)
			if err != nil {
				return err
			}
			materials, err := config.LoadMaterials(materialsPath)
			if err != nil {
				return err
			}
			if err := config.InitOutputDir(out); err != nil {
				return err
			}

			cleanup, err := logging.Setup(logging.Config{
				Dir:   config.LogsDir(out),
				Level: cfg.Project.Runtime.LogLevel,
			})
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			journal, err := logbook.New(config.JournalPath(out))
			if err != nil {
				return err
			}
			recorder := metric.NewRecorder()
			if parallelism <= 0 {
				parallelism = cfg.Project.Runtime.Parallelism
			}
			engine, err := reprocess.NewEngine(plans,
				reprocess.WithLogger(logging.L()),
				reprocess.WithJournal(journal),
				reprocess.WithRecorder(recorder),
				reprocess.WithParallelism(parallelism),
			)
			if err != nil {
				return err
			}

			res, err := engine.Step(cmd.Context(), materials)
			if err != nil {
				return err
			}
			resultPath := config.ResultPath(out, res.RunID)
			if err := config.WriteResult(resultPath, res); err != nil {
				return err
			}
			if nextPath != "" {
				if err := config.WriteMaterials(nextPath, res.Materials); err != nil {
					return err
				}
			}
			if metricsFile != "" {
				if err := recorder.WriteTextfile(metricsFile); err != nil {
					return err
				}
			}

			lines, _ := journal.Tail(journalLines)
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, tui.Report(config.NewResultDoc(res), lines))
			fmt.Fprintf(w, "result: %s\n", resultPath)

			if res.Failed() {
				return fmt.Errorf("step %s: %d material(s) failed", res.RunID, len(res.Failures))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Project file")
	c.Flags().StringVarP(&materialsPath, "materials", "m", "", "Material snapshot to reprocess (required)")
	c.Flags().StringVarP(&out, "out", "o", config.DefaultOutputDir, "Output directory for results, journal and logs")
	c.Flags().StringVar(&metricsFile, "metrics-file", "", "Write step metrics in Prometheus text format")
	c.Flags().StringVar(&nextPath, "write-materials", "", "Write the reprocessed materials as a snapshot for the next step")
	c.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "Materials reprocessed at once (default from project runtime)")
	c.Flags().IntVar(&journalLines, "journal-lines", defaultJournalLines, "Journal lines shown in the report")

	_ = c.MarkFlagRequired("materials")
	return c
}
