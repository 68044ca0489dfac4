package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/config"
	"github.com/zjrosen/registrar/internal/presentation"
)

var filterClear bool

var catalogFilterCmd = &cobra.Command{
	Use:   "catalog:filter [EXPR...]",
	Short: "Show or replace the catalog filters",
	Long: `Show or replace catalog.filters in the config file.

Filters are CEL expressions over "entity"; an entity is listed only if every
expression evaluates to true. Each expression is compiled before the file is
written. Comments and other settings in the config file are kept.

Examples:
  # Show the current filters
  registrar catalog:filter

  # Only production clusters
  registrar catalog:filter 'entity.kind == "KubernetesCluster"' 'entity.metadata.labels.env == "prod"'

  # Remove all filters
  registrar catalog:filter --clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := presentation.NewFormatter(cmd.OutOrStdout())
		if len(args) == 0 && !filterClear {
			return out.Format(cfg.Catalog.Filters)
		}
		if len(args) > 0 && filterClear {
			return errors.New("--clear takes no expressions")
		}

		filters := make([]string, 0, len(args))
		for _, expr := range args {
			expr = strings.TrimSpace(expr)
			if _, err := catalog.CompileFilter(expr); err != nil {
				return err
			}
			filters = append(filters, expr)
		}
		if cfgPath == "" {
			return errors.New("no config file to write; pass --config")
		}
		if err := config.SaveCatalogFilters(cfgPath, filters); err != nil {
			return err
		}
		cfg.Catalog.Filters = filters
		return out.Format(filters)
	},
}

var (
	addCategory    string
	addLabels      map[string]string
	addDescription string
)

var catalogAddCmd = &cobra.Command{
	Use:   "catalog:add NAME",
	Short: "Add a local entity to the catalog",
	Long: `Add an entity that lives in the registrar database rather than in a
manifest file. --category is "apiVersion/kind" of a registered category and
defaults to General.

Examples:
  registrar catalog:add scratchpad
  registrar catalog:add prod --category entity.registrar.dev/v1alpha1/KubernetesCluster --label env=prod`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.DB == nil {
			return errors.New("local entities need the catalog-persistence flag")
		}

		cat := catalog.General
		if addCategory != "" {
			found := false
			for _, c := range a.Categories.Items() {
				if c.ID() == addCategory {
					cat, found = c, true
					break
				}
			}
			if !found {
				return fmt.Errorf("%q: %w", addCategory, catalog.ErrUnknownCategory)
			}
		}

		var stored *catalog.Entity
		err = a.Do(cmd.Context(), func(context.Context) error {
			stored, err = a.Local.Add(&catalog.Entity{
				APIVersion: cat.APIVersion,
				Kind:       cat.Kind,
				Metadata: catalog.Metadata{
					Name:        args[0],
					Labels:      addLabels,
					Description: addDescription,
				},
				Status: catalog.Status{Phase: catalog.PhaseAvailable},
			})
			return err
		})
		if err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).Format(presentation.FromEntity(stored, ""))
	},
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "catalog:remove UID",
	Short: "Remove a local entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Do(cmd.Context(), func(context.Context) error {
			if !a.Local.Remove(args[0]) {
				return fmt.Errorf("no local entity with uid %q", args[0])
			}
			cmd.PrintErrf("removed %s\n", args[0])
			return nil
		})
	},
}

var catalogActivateCmd = &cobra.Command{
	Use:   "catalog:activate UID|NAME",
	Short: "Run an entity and make it the active entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var active *catalog.Entity
		err = a.Do(cmd.Context(), func(ctx context.Context) error {
			e, err := findEntity(a.Entities, args[0])
			if err != nil {
				return err
			}
			ran, err := a.Entities.Run(ctx, e)
			if err != nil {
				return err
			}
			if !ran {
				return fmt.Errorf("running %s was cancelled", e.Metadata.Name)
			}
			active = e
			return nil
		})
		if err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).Format(presentation.FromEntity(active, active.UID()))
	},
}

func init() {
	catalogFilterCmd.Flags().BoolVar(&filterClear, "clear", false, "remove all filters")
	catalogAddCmd.Flags().StringVar(&addCategory, "category", "", "apiVersion/kind of the entity (default General)")
	catalogAddCmd.Flags().StringToStringVarP(&addLabels, "label", "l", nil, "label as key=value (repeatable)")
	catalogAddCmd.Flags().StringVar(&addDescription, "description", "", "entity description")

	rootCmd.AddCommand(catalogFilterCmd, catalogAddCmd, catalogRemoveCmd, catalogActivateCmd)
}
