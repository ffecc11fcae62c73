package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/siteboard/siteboard/internal/board"
	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/store"
)

var statusRows = []models.RowType{
	models.RowForeman,
	models.RowCrew,
	models.RowEquipment,
	models.RowTrucks,
}

func newStatusCmd() *cobra.Command {
	var (
		configPath string
		date       string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the scheduling board",
		Long:  "Prints every job board for a date with its rows, placements, and attachments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			st := store.New(gormDB, cfg.Client)
			b, snap, err := loadBoard(context.Background(), st)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printed := 0
			for _, job := range snap.Jobs {
				if date != "" && job.Date != date {
					continue
				}
				printed++
				fmt.Fprintf(out, "%s  %s (%s shift, %s)\n", job.ID, job.Name, job.Shift, job.Date)

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, row := range statusRows {
					for _, a := range b.AssignmentsByJobRow(job.ID, row) {
						if a.Attached() {
							continue
						}
						printAssignment(w, b, row, a, "")
					}
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}

			if printed == 0 {
				fmt.Fprintln(out, "No jobs scheduled.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().StringVar(&date, "date", "", "only jobs on this date")
	return cmd
}

func printAssignment(w *tabwriter.Writer, b *board.Board, row models.RowType, a models.Assignment, indent string) {
	name := a.ResourceID
	if r, ok := b.Resource(a.ResourceID); ok {
		name = r.Name
	}
	double := ""
	if b.IsWorkingDouble(a.ResourceID) {
		double = "  [double]"
	}
	fmt.Fprintf(w, "  %s\t%s%s\t%s\t%s-%s%s\n", row, indent, name, a.ID, a.Slot.Start, a.Slot.End, double)
	for _, child := range b.AttachedAssignments(a.ID) {
		printAssignment(w, b, row, child, indent+"+ ")
	}
}
