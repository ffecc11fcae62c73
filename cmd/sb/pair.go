package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/siteboard/siteboard/internal/pairing"
)

func newPairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Driver/vehicle pairing commands",
	}

	cmd.AddCommand(newPairSetCmd())
	cmd.AddCommand(newPairUnsetCmd())
	cmd.AddCommand(newPairListCmd())
	return cmd
}

func newPairSetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set <left-resource-id> <right-resource-id>",
		Short: "Pair two resources 1:1",
		Long:  "Pairs two resources, e.g. a driver with a truck. Any prior pairing of either side is replaced.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			p, err := pairing.Pair(gormDB, args[0], args[1], cfg.Client)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paired %s with %s\n", p.LeftID, p.RightID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}

func newPairUnsetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "unset <resource-id>",
		Short: "Remove a resource's pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := pairing.Unpair(gormDB, args[0], cfg.Client); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpaired %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}

func newPairListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all pairings",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			pairs, err := pairing.List(gormDB)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LEFT\tRIGHT")
			for _, p := range pairs {
				fmt.Fprintf(w, "%s\t%s\n", p.LeftID, p.RightID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Siteboard config file")
	return cmd
}
