package cli

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/saltproc/internal/config"
	"github.com/kingrea/saltproc/internal/tui"
)

func browseCmd() *cobra.Command {
	var resultPath string

	c := &cobra.Command{
		Use:   "browse",
		Short: "Browse the streams of a step result",
		RunE: func(_ *cobra.Command, _ []string) error {
			doc, err := config.LoadResult(resultPath)
			if err != nil {
				return err
			}
			return tui.Browse(doc)
		},
	}

	c.Flags().StringVarP(&resultPath, "result", "r", "", "Result file written by run (required)")
	_ = c.MarkFlagRequired("result")
	return c
}
