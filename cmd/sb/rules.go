package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/store"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Attachment and row rule commands",
	}

	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesSetCmd())
	cmd.AddCommand(newRulesSetRowCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attachment rules and row rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var magnet []models.MagnetRule
			if err := gormDB.Order("target_type ASC, source_type ASC").Find(&magnet).Error; err != nil {
				return fmt.Errorf("list rules: %w", err)
			}
			var drop []models.DropRule
			if err := gormDB.Order("row ASC").Find(&drop).Error; err != nil {
				return fmt.Errorf("list row rules: %w", err)
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tTARGET\tALLOWED\tREQUIRED\tMAX")
			for _, r := range magnet {
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%d\n", r.SourceType, r.TargetType, r.CanAttach, r.IsRequired, r.MaxCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROW\tALLOWED TYPES")
			for _, d := range drop {
				fmt.Fprintf(w, "%s\t%s\n", d.Row, d.AllowedTypes)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}

func newRulesSetCmd() *cobra.Command {
	var (
		configPath string
		canAttach  bool
		isRequired bool
		maxCount   int
	)

	cmd := &cobra.Command{
		Use:   "set <source-type> <target-type>",
		Short: "Insert or update one attachment rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			st := store.New(gormDB, cfg.Client)
			rule := models.MagnetRule{
				SourceType: models.ResourceType(args[0]),
				TargetType: models.ResourceType(args[1]),
				CanAttach:  canAttach,
				IsRequired: isRequired,
				MaxCount:   maxCount,
			}
			if err := st.UpsertRule(context.Background(), rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %s -> %s saved\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().BoolVar(&canAttach, "allow", true, "whether attachment is allowed")
	cmd.Flags().BoolVar(&isRequired, "required", false, "whether the attachment is mandatory")
	cmd.Flags().IntVar(&maxCount, "max", 1, "maximum attachments of this source type")
	return cmd
}

func newRulesSetRowCmd() *cobra.Command {
	var (
		configPath string
		types      string
	)

	cmd := &cobra.Command{
		Use:   "set-row <row>",
		Short: "Insert or update one row rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			allowed := strings.Split(types, ",")
			for i := range allowed {
				allowed[i] = fmt.Sprintf("%q", strings.TrimSpace(allowed[i]))
			}

			st := store.New(gormDB, cfg.Client)
			rule := models.DropRule{
				Row:          models.RowType(args[0]),
				AllowedTypes: "[" + strings.Join(allowed, ",") + "]",
			}
			if err := st.UpsertDropRule(context.Background(), rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Row rule %s saved\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().StringVar(&types, "types", "", "comma-separated resource types allowed in the row (required)")
	cmd.MarkFlagRequired("types")
	return cmd
}
