package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"portfolio/config"
	"portfolio/logging"
	"portfolio/model"
	"portfolio/notify"
	"portfolio/storage"
	"portfolio/theme"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Inspect and switch the site theme",
	Long:  "List the built-in palettes and change the theme persisted in the data directory.",
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every palette with colour swatches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, _, err := openThemes(cmd, false)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), theme.Swatches(reg.CurrentPalette()))
		return nil
	},
}

var themeCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the selected theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, _, err := openThemes(cmd, false)
		if err != nil {
			return err
		}
		p := reg.CurrentPalette()
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.ID, p.Display)
		return nil
	},
}

var themeSetCmd = &cobra.Command{
	Use:       "set <theme>",
	Short:     "Switch to a palette",
	Args:      cobra.ExactArgs(1),
	ValidArgs: themeIDs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, ind, err := openThemes(cmd, true)
		if err != nil {
			return err
		}
		id := model.ThemeID(args[0])
		if !reg.SetTheme(id) {
			return fmt.Errorf("%w: %q (choose one of %v)", theme.ErrUnknownTheme, id, themeIDs())
		}
		printIndicator(cmd, ind)
		return nil
	},
}

var themeCycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Advance to the next palette",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, ind, err := openThemes(cmd, true)
		if err != nil {
			return err
		}
		reg.CycleTheme()
		printIndicator(cmd, ind)
		return nil
	},
}

var themeCSSCmd = &cobra.Command{
	Use:   "css [theme]",
	Short: "Print a palette, or the saved selection, as a :root stylesheet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			p, err := theme.Lookup(model.ThemeID(args[0]))
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), theme.PaletteCSS(p))
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		scope := theme.NewStylesheetScope()
		restoreSaved(storage.NewLocal(cfg.DataDir), scope, cfg.DefaultTheme)
		fmt.Fprint(cmd.OutOrStdout(), scope.CSS())
		return nil
	},
}

var themeCheckCmd = &cobra.Command{
	Use:   "check <stylesheet>",
	Short: "Verify a stylesheet's :root declares every theme variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		css, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if missing := theme.MissingVars(string(css)); len(missing) > 0 {
			return fmt.Errorf("%s: :root is missing %s", args[0], strings.Join(missing, ", "))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
		return nil
	},
}

func init() {
	themeCmd.AddCommand(themeListCmd, themeCurrentCmd, themeSetCmd, themeCycleCmd, themeCSSCmd, themeCheckCmd)
}

// openThemes returns a registry positioned on the persisted selection. With
// interactive set, changes are announced on the terminal.
func openThemes(cmd *cobra.Command, interactive bool) (*theme.Registry, *theme.MenuIndicator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	local := storage.NewLocal(cfg.DataDir)

	saved := restoreSaved(local, nil, cfg.DefaultTheme)

	ind := theme.NewMenuIndicator()
	opts := []theme.Option{
		theme.WithStore(local),
		theme.WithIndicator(ind),
		theme.WithDefault(saved),
	}
	if interactive {
		logger, err := logging.New(config.LogConfig{Level: "warn"})
		if err != nil {
			return nil, nil, err
		}
		display := notify.NewTerminalDisplay(cmd.OutOrStdout())
		opts = append(opts,
			theme.WithNotifier(notify.NewQueue(display, nil, logger)),
			theme.WithLogger(logger))
	}
	return theme.NewRegistry(nil, opts...), ind, nil
}

// restoreSaved applies the persisted selection to scope without writing to
// the data dir.
func restoreSaved(local *storage.Local, scope theme.StyleScope, fallback model.ThemeID) model.ThemeID {
	return theme.NewRegistry(scope, theme.WithStore(readOnlyStore{local}), theme.WithDefault(fallback)).Restore()
}

// readOnlyStore drops writes so a restore does not touch the data dir.
type readOnlyStore struct{ *storage.Local }

func (readOnlyStore) Set(string, any) error { return nil }

func printIndicator(cmd *cobra.Command, ind *theme.MenuIndicator) {
	fmt.Fprintf(cmd.OutOrStdout(), "active: %s  icon: %s  body class: %s\n", ind.Active(), ind.Icon(), ind.BodyClass())
}

func themeIDs() []string {
	var ids []string
	for _, p := range theme.Palettes() {
		ids = append(ids, string(p.ID))
	}
	return ids
}
