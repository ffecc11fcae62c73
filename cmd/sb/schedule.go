package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/reconcile"
)

func newAssignCmd() *cobra.Command {
	var (
		configPath string
		position   int
	)

	cmd := &cobra.Command{
		Use:   "assign <resource-id> <job-id> <row>",
		Short: "Place a resource on a job row",
		Long:  "Places a resource on a job row, replacing any standalone assignment it holds on the same shift.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(configPath, func(ctx context.Context, r *reconcile.Reconciler) error {
				h, err := r.Assign(args[0], args[1], models.RowType(args[2]), position)
				if err != nil {
					return err
				}
				id, err := h.Await(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s/%s as %s\n", args[0], args[1], args[2], id)
				warnDoubleShift(cmd, r, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().IntVar(&position, "position", 0, "position within the row")
	return cmd
}

func newAttachCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "attach <target-assignment-id> <source>",
		Short: "Attach a resource to an assignment",
		Long:  "Attaches a source resource (by resource id or existing assignment id) to a target assignment, e.g. an operator onto an excavator.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(configPath, func(ctx context.Context, r *reconcile.Reconciler) error {
				h, err := r.Attach(args[0], args[1])
				if err != nil {
					return err
				}
				id, err := h.Await(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Attached %s to %s as %s\n", args[1], args[0], id)

				missing, err := r.Board().MissingRequiredAttachments(args[0])
				if err == nil && len(missing) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Still required: %v\n", missing)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}

func newDetachCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "detach <assignment-id>",
		Short: "Sever an attachment",
		Long:  "Detaches a child assignment from its parent, or dissolves a parent's whole group.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(configPath, func(ctx context.Context, r *reconcile.Reconciler) error {
				h, err := r.Detach(args[0])
				if err != nil {
					return err
				}
				if _, err := h.Await(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Detached %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <assignment-id>",
		Short: "Remove an assignment and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(configPath, func(ctx context.Context, r *reconcile.Reconciler) error {
				h, err := r.Remove(args[0])
				if err != nil {
					return err
				}
				if _, err := h.Await(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}

func newMoveCmd() *cobra.Command {
	var (
		configPath string
		position   int
	)

	cmd := &cobra.Command{
		Use:   "move <assignment-id> <job-id> <row>",
		Short: "Move an assignment group to another job row",
		Long:  "Moves an assignment and its whole attachment group to another job row under fresh ids, inheriting the destination job's default times.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(configPath, func(ctx context.Context, r *reconcile.Reconciler) error {
				ids := []string{args[0]}
				for _, child := range r.Board().AttachedAssignments(args[0]) {
					ids = append(ids, child.ID)
				}

				h, err := r.MoveGroup(ids, args[1], models.RowType(args[2]), position)
				if err != nil {
					return err
				}
				newID, err := h.Await(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %d assignment(s) to %s/%s; new primary is %s\n", len(ids), args[1], args[2], newID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().IntVar(&position, "position", 0, "position within the destination row")
	return cmd
}

func warnDoubleShift(cmd *cobra.Command, r *reconcile.Reconciler, resourceID string) {
	if !r.Board().IsWorkingDouble(resourceID) {
		return
	}
	ds := r.Board().DoubleShiftJobs(resourceID)
	day, night := "?", "?"
	if ds.DayJob != nil {
		day = ds.DayJob.Name
	}
	if ds.NightJob != nil {
		night = ds.NightJob.Name
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Warning: %s is now working a double shift (%s / %s)\n", resourceID, day, night)
}
