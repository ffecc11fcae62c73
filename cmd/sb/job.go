package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/outbox"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Job management commands",
	}

	cmd.AddCommand(newJobCreateCmd())
	cmd.AddCommand(newJobListCmd())
	cmd.AddCommand(newJobFinalizeCmd())
	return cmd
}

func newJobCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		jobType    string
		shift      string
		date       string
		start      string
		end        string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			s := models.Shift(shift)
			if !s.Valid() {
				return fmt.Errorf("invalid shift %q (want day or night)", shift)
			}

			id, err := generatePrefixedID("job-")
			if err != nil {
				return err
			}
			job := models.Job{
				ID:           id,
				Name:         name,
				Type:         jobType,
				Shift:        s,
				Date:         date,
				DefaultStart: start,
				DefaultEnd:   end,
			}
			err = gormDB.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&job).Error; err != nil {
					return fmt.Errorf("create job: %w", err)
				}
				return outbox.Append(tx, models.TableJobs, models.OpInsert, job.ID, cfg.Client, job)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created job %s (%s, %s shift on %s)\n", job.ID, job.Name, job.Shift, job.Date)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().StringVar(&name, "name", "", "job name (required)")
	cmd.Flags().StringVar(&jobType, "type", "paving", "job type")
	cmd.Flags().StringVar(&shift, "shift", "day", "shift (day or night)")
	cmd.Flags().StringVar(&date, "date", "", "schedule date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&start, "start", "07:00", "default start time, HH:MM")
	cmd.Flags().StringVar(&end, "end", "15:00", "default end time, HH:MM")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("date")
	return cmd
}

func newJobListCmd() *cobra.Command {
	var (
		configPath string
		date       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			q := gormDB.Order("date ASC, shift ASC")
			if date != "" {
				q = q.Where("date = ?", date)
			}
			var jobs []models.Job
			if err := q.Find(&jobs).Error; err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSHIFT\tDATE\tSTART\tFINALIZED")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n", j.ID, j.Name, j.Shift, j.Date, j.DefaultStart, j.Finalized)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().StringVar(&date, "date", "", "only jobs on this date")
	return cmd
}

func newJobFinalizeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "finalize <job-id>",
		Short: "Mark a job's board as finalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			err = gormDB.Transaction(func(tx *gorm.DB) error {
				var job models.Job
				if err := tx.Where("id = ?", args[0]).First(&job).Error; err != nil {
					return fmt.Errorf("job not found: %s", args[0])
				}
				job.Finalized = true
				if err := tx.Save(&job).Error; err != nil {
					return fmt.Errorf("finalize job: %w", err)
				}
				return outbox.Append(tx, models.TableJobs, models.OpUpdate, job.ID, cfg.Client, job)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Finalized job %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}

// generatePrefixedID creates a random id like job-3fa2c1 or res-90be44.
func generatePrefixedID(prefix string) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return prefix + hex.EncodeToString(b), nil
}
