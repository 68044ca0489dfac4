package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjrosen/registrar/internal/app"
	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/presentation"
)

var hotbarSlot int

var hotbarListCmd = &cobra.Command{
	Use:   "hotbar:list",
	Short: "List hotbars and their slots",
	Long: `List every hotbar as JSON. Empty slots are null; the active hotbar has
active=true.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatHotbars(presentation.FromHotbars(a.Hotbar))
	},
}

var hotbarAddCmd = &cobra.Command{
	Use:   "hotbar:add NAME",
	Short: "Create a hotbar and make it active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateHotbar(cmd, func(_ context.Context, a *app.App) error {
			_, err := a.Hotbar.Add(args[0])
			return err
		})
	},
}

var hotbarRemoveCmd = &cobra.Command{
	Use:   "hotbar:remove NAME|ID",
	Short: "Delete a hotbar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateHotbar(cmd, func(_ context.Context, a *app.App) error {
			h, err := findHotbar(a.Hotbar, args[0])
			if err != nil {
				return err
			}
			return a.Hotbar.Remove(h.ID)
		})
	},
}

var hotbarUseCmd = &cobra.Command{
	Use:   "hotbar:use NAME|ID",
	Short: "Switch the active hotbar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateHotbar(cmd, func(_ context.Context, a *app.App) error {
			h, err := findHotbar(a.Hotbar, args[0])
			if err != nil {
				return err
			}
			return a.Hotbar.SetActive(h.ID)
		})
	},
}

var hotbarPinCmd = &cobra.Command{
	Use:   "hotbar:pin UID|NAME",
	Short: "Pin a catalog entity to the active hotbar",
	Long: `Pin a catalog entity to the active hotbar, in the first free slot or in
the slot given by --slot (1-based). Pinning an entity twice is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateHotbar(cmd, func(_ context.Context, a *app.App) error {
			e, err := findEntity(a.Entities, args[0])
			if err != nil {
				return err
			}
			if hotbarSlot > 0 {
				return a.Hotbar.AddToHotbar(e, hotbarSlot-1)
			}
			return a.Hotbar.AddToHotbar(e)
		})
	},
}

var hotbarUnpinCmd = &cobra.Command{
	Use:   "hotbar:unpin UID",
	Short: "Clear the slot holding an entity on the active hotbar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateHotbar(cmd, func(_ context.Context, a *app.App) error {
			if !a.Hotbar.RemoveFromHotbar(args[0]) {
				return fmt.Errorf("%s is not pinned to the active hotbar", args[0])
			}
			return nil
		})
	},
}

var hotbarMoveCmd = &cobra.Command{
	Use:   "hotbar:move FROM TO",
	Short: "Move a slot on the active hotbar (1-based)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("FROM: %w", err)
		}
		to, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("TO: %w", err)
		}
		return updateHotbar(cmd, func(_ context.Context, a *app.App) error {
			return a.Hotbar.Move(from-1, to-1)
		})
	},
}

func init() {
	hotbarPinCmd.Flags().IntVar(&hotbarSlot, "slot", 0, "slot to pin into (1-based); default is the first free slot")
	rootCmd.AddCommand(hotbarListCmd, hotbarAddCmd, hotbarRemoveCmd, hotbarUseCmd, hotbarPinCmd, hotbarUnpinCmd, hotbarMoveCmd)
}

// updateHotbar applies fn and prints the resulting hotbars.
func updateHotbar(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.DB == nil {
		log.Warn(log.CatHotbar, "Catalog persistence is disabled; hotbar changes are not saved")
		cmd.PrintErrln("warning: catalog persistence is disabled, changes will not be saved")
	}
	if err := a.Do(cmd.Context(), func(ctx context.Context) error { return fn(ctx, a) }); err != nil {
		return err
	}
	return presentation.NewFormatter(cmd.OutOrStdout()).FormatHotbars(presentation.FromHotbars(a.Hotbar))
}

func findHotbar(s *hotbar.Store, ref string) (*hotbar.Hotbar, error) {
	var byName *hotbar.Hotbar
	for _, h := range s.Hotbars() {
		if h.ID == ref {
			return h, nil
		}
		if h.Name == ref && byName == nil {
			byName = h
		}
	}
	if byName == nil {
		return nil, fmt.Errorf("%s: %w", ref, hotbar.ErrHotbarNotFound)
	}
	return byName, nil
}

// findEntity resolves a uid, or a name that matches exactly one visible entity.
func findEntity(r *catalog.EntityRegistry, ref string) (*catalog.Entity, error) {
	if e, ok := r.GetByID(ref); ok {
		return e, nil
	}
	var matches []*catalog.Entity
	for _, e := range r.Entities() {
		if e.Metadata.Name == ref {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no entity with uid or name %q", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%d entities are named %q; use the uid", len(matches), ref)
	}
}
