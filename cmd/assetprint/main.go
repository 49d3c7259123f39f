package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/torfstack/assetprint/internal/config"
	"github.com/torfstack/assetprint/internal/logging"
	"github.com/torfstack/assetprint/internal/report"
	"github.com/torfstack/assetprint/internal/service"
	"github.com/torfstack/assetprint/internal/ui"
)

var (
	Version   = "dev"
	GitCommit = "none"
)

type flags struct {
	debug    bool
	archive  string
	root     string
	assetDir string
	sort     bool
	format   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	var rootCmd = &cobra.Command{
		Use:           "assetprint",
		Short:         "Enumerate packaged assets and fingerprint them by their zip checksums",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout carries the report
			logging.SetOutput(os.Stderr)
			logging.SetDebug(f.debug)
		},
	}

	rootCmd.PersistentFlags().
		BoolVarP(&f.debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().
		StringVar(&f.archive, "archive", "", "Path to the application archive (overrides archive_path)")
	rootCmd.PersistentFlags().
		StringVar(&f.root, "root", "", "Asset path to enumerate from (overrides asset_root)")
	rootCmd.PersistentFlags().
		StringVar(&f.assetDir, "asset-dir", "", "List assets from this directory instead of the archive (overrides asset_dir)")
	rootCmd.PersistentFlags().
		BoolVar(&f.sort, "sort", false, "Sort asset paths before fingerprinting (overrides sort_paths)")
	rootCmd.PersistentFlags().
		StringVarP(&f.format, "format", "o", "text", "Output format: text, json or yaml")

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all assets below the asset root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, format, err := setup(cmd, f)
			if err != nil {
				return err
			}
			inv, err := srv.Inventory()
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, report.NewAssetList(srv.Config().AssetRoot, inv))
		},
	}

	var fingerprintCmd = &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the asset fingerprint of the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, format, err := setup(cmd, f)
			if err != nil {
				return err
			}
			inv, err := srv.Inventory()
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, report.NewFingerprint(inv))
		},
	}

	var checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Fingerprint the assets and compare with the last recorded fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, format, err := setup(cmd, f)
			if err != nil {
				return err
			}
			res, err := srv.Check(cmd.Context())
			if err != nil {
				return err
			}
			return report.Write(
				cmd.OutOrStdout(), format,
				report.NewCheck(report.NewFingerprint(res.Inventory), string(res.Status), res.Previous),
			)
		},
	}

	var limit int
	var historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recorded fingerprints of the archive, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, format, err := setup(cmd, f)
			if err != nil {
				return err
			}
			records, err := srv.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, report.History{Archive: srv.ArchiveKey(), Records: records})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")

	var entriesCmd = &cobra.Command{
		Use:   "entries",
		Short: "List every file record of the archive with its checksum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, format, err := setup(cmd, f)
			if err != nil {
				return err
			}
			entries, err := srv.Entries()
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, report.Entries{Archive: srv.Config().ArchivePath, Entries: entries})
		},
	}

	var catCmd = &cobra.Command{
		Use:   "cat <asset>",
		Short: "Print the content of a packaged asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, _, err := setup(cmd, f)
			if err != nil {
				return err
			}
			b, err := srv.ReadAsset(args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-check the fingerprint whenever the archive or asset directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, format, err := setup(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logging.Infof("Watching '%s'", srv.ArchiveKey())
			return srv.Watch(ctx, func(res service.CheckResult) {
				if res.Status == service.StatusUnchanged {
					return
				}
				c := report.NewCheck(report.NewFingerprint(res.Inventory), string(res.Status), res.Previous)
				if err := report.Write(cmd.OutOrStdout(), format, c); err != nil {
					logging.Error("Could not write check result", err)
				}
			})
		},
	}

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create or update the configuration file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Init()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Configuration written to "+config.Path()))
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderKeyValue("Archive", cfg.ArchivePath))
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderKeyValue("Asset root", cfg.AssetRoot))
			return nil
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "assetprint %s (%s)\n", Version, GitCommit)
		},
	}

	rootCmd.AddCommand(listCmd, fingerprintCmd, checkCmd, historyCmd, entriesCmd, catCmd, watchCmd, initCmd, versionCmd)
	return rootCmd
}

func setup(cmd *cobra.Command, f flags) (*service.Service, report.Format, error) {
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Get()
	if err != nil {
		return nil, "", err
	}
	applyFlags(cmd, f, &cfg)
	logging.Debugf("Using archive '%s', asset root '%s'", cfg.ArchivePath, cfg.AssetRoot)
	return service.NewService(cfg), format, nil
}

// applyFlags overrides config values with flags that were set explicitly.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("archive") {
		cfg.ArchivePath = f.archive
	}
	if changed("root") {
		cfg.AssetRoot = f.root
	}
	if changed("asset-dir") {
		cfg.AssetDir = f.assetDir
	}
	if changed("sort") {
		cfg.SortPaths = f.sort
	}
}
