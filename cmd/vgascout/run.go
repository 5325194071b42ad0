package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/vgascout/models"
)

const summaryRecords = 3

func newRunCmd() *cobra.Command {
	var (
		pages  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the listing once and write the result file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pages") {
				cfg.Scraper.MaxPages = pages
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Path = output
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.runOnce(ctx, cfg.Scraper.MaxPages)
		},
	}

	cmd.Flags().IntVarP(&pages, "pages", "p", 3, "number of listing pages to visit")
	cmd.Flags().StringVarP(&output, "output", "o", "resultado_placas.json", "result file path")
	return cmd
}

func printSummary(run *models.Run) {
	if run.Result == nil || run.Result.TotalCount == 0 {
		fmt.Println("No graphics cards found.")
		return
	}

	fmt.Printf("Found %d graphics cards", run.Result.TotalCount)
	if run.Output != "" {
		fmt.Printf(", saved to %s", run.Output)
	}
	fmt.Println()

	for i, r := range run.Result.Records {
		if i == summaryRecords {
			fmt.Printf("  ... and %d more\n", run.Result.TotalCount-summaryRecords)
			break
		}
		fmt.Printf("  %d. %s | %s | %s %s\n", i+1, r.Model, r.Price, r.MemorySize, r.MemoryType)
	}
}
