package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/presentation"
)

var contribToken string

var contribListCmd = &cobra.Command{
	Use:   "contrib:list",
	Short: "List registered contributions",
	Long: `List every contribution currently registered, as JSON.

Each entry names its token, id, parent (for menu items) and the producer
that owns it. Use --token to show a single store.

Examples:
  # Everything
  registrar contrib:list

  # Only commands
  registrar contrib:list --token commands

  # Who owns what
  registrar contrib:list | jq 'group_by(.owner) | map({owner: .[0].owner, count: length})'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if contribToken != "" && !slices.Contains(contrib.TokenNames(), contribToken) {
			return fmt.Errorf("unknown token %q (known: %s)", contribToken, strings.Join(contrib.TokenNames(), ", "))
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		dtos := presentation.FilterByToken(presentation.FromStores(a.Stores), contribToken)
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatContributions(dtos)
	},
}

var (
	catalogAll      bool
	catalogCategory string
)

var catalogListCmd = &cobra.Command{
	Use:   "catalog:list",
	Short: "List catalog entities",
	Long: `List catalog entities as JSON.

By default only entities passing the configured catalog filters are shown;
--all includes filtered-out entities. --category limits the output to one
category, given as "apiVersion/kind".

Examples:
  registrar catalog:list
  registrar catalog:list --all
  registrar catalog:list --category entity.registrar.dev/v1alpha1/KubernetesCluster
  registrar catalog:list | jq '.[] | select(.phase == "connected") | .name'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entities := a.Entities.Entities()
		if catalogAll {
			entities = a.Entities.AllEntities()
		}
		if catalogCategory != "" {
			entities = slices.DeleteFunc(slices.Clone(entities), func(e *catalog.Entity) bool {
				return e.KindData().String() != catalogCategory
			})
		}

		activeUID := ""
		if e := a.Entities.ActiveEntity(); e != nil {
			activeUID = e.UID()
		}
		dtos := make([]presentation.EntityDTO, 0, len(entities))
		for _, e := range entities {
			dtos = append(dtos, presentation.FromEntity(e, activeUID))
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatEntities(dtos)
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "category:list",
	Short: "List categories",
	Long: `List registered categories as JSON with the number of visible entities
each one classifies. Categories hidden by a category filter have visible=false.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return presentation.NewFormatter(cmd.OutOrStdout()).
			FormatCategories(presentation.FromCategories(a.Categories, a.Entities))
	},
}

var extensionListCmd = &cobra.Command{
	Use:   "extension:list",
	Short: "List loaded extensions",
	Long: `List built-in and directory extensions as JSON.

Extensions that failed validation or are incompatible with this version are
skipped at load time; run with --debug to see why in the log.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return presentation.NewFormatter(cmd.OutOrStdout()).
			FormatExtensions(presentation.FromExtensions(a.Extensions.List()))
	},
}

func init() {
	contribListCmd.Flags().StringVarP(&contribToken, "token", "t", "",
		"only list one token ("+strings.Join(contrib.TokenNames(), ", ")+")")
	catalogListCmd.Flags().BoolVarP(&catalogAll, "all", "a", false, "include entities hidden by catalog filters")
	catalogListCmd.Flags().StringVar(&catalogCategory, "category", "", "only list entities of this apiVersion/kind")

	rootCmd.AddCommand(contribListCmd, catalogListCmd, categoryListCmd, extensionListCmd)
}
