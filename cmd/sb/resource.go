package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/siteboard/siteboard/internal/models"
	"github.com/siteboard/siteboard/internal/outbox"
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Resource management commands",
	}

	cmd.AddCommand(newResourceCreateCmd())
	cmd.AddCommand(newResourceListCmd())
	return cmd
}

func newResourceCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		kind       string
		resType    string
		identifier string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new resource",
		Long:  "Registers an employee or a piece of equipment so it can be placed on job boards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			k := models.ResourceKind(kind)
			if k != models.KindEmployee && k != models.KindEquipment {
				return fmt.Errorf("invalid kind %q (want employee or equipment)", kind)
			}

			id, err := generatePrefixedID("res-")
			if err != nil {
				return err
			}
			res := models.Resource{
				ID:         id,
				Name:       name,
				Kind:       k,
				Type:       models.ResourceType(resType),
				Identifier: identifier,
			}
			err = gormDB.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&res).Error; err != nil {
					return fmt.Errorf("create resource: %w", err)
				}
				return outbox.Append(tx, models.TableResources, models.OpInsert, res.ID, cfg.Client, res)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created resource %s (%s, %s)\n", res.ID, res.Name, res.Type)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "employee or equipment (required)")
	cmd.Flags().StringVar(&resType, "type", "", "resource type, e.g. operator, excavator (required)")
	cmd.Flags().StringVar(&identifier, "identifier", "", "unit number or phone")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("kind")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newResourceListCmd() *cobra.Command {
	var (
		configPath string
		kind       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			q := gormDB.Order("kind ASC, name ASC")
			if kind != "" {
				q = q.Where("kind = ?", kind)
			}
			var resources []models.Resource
			if err := q.Find(&resources).Error; err != nil {
				return fmt.Errorf("list resources: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tTYPE\tIDENTIFIER")
			for _, r := range resources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Kind, r.Type, r.Identifier)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	cmd.Flags().StringVar(&kind, "kind", "", "only employee or equipment")
	return cmd
}
