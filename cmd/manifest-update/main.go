package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lvitti/manifest-bot/internal/config"
	"github.com/lvitti/manifest-bot/internal/updater"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

func setupLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	return log
}

func main() {
	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		logrus.Fatalf("ERROR: %v", err)
	}
	log := setupLogger(cfg.LogLevel)

	cmd := newRootCmd(log, cfg)
	if err := cmd.Execute(); err != nil {
		log.Errorf("ERROR: %v", err)
		os.Exit(1)
	}
}

func newRootCmd(log *logrus.Logger, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest-update <Jellyfin.Plugin.Subdivx-vX.Y.Z.zip | vX.Y.Z | X.Y.Z>",
		Short: "Update the Jellyfin plugin manifest with a new release entry",
		Long: "Prepends an entry for the given release to the remote plugin manifest and writes the result to a local file.\n" +
			"The argument is either the local asset file or a version; when no such file exists the asset is downloaded from the GitHub release.",
		Version:      version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(log, cfg, cmd, args)
		},
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	cmd.Flags().StringVar(&cfg.Repo, "repo", cfg.Repo, "GitHub repo in the form owner/name")
	cmd.Flags().StringVar(&cfg.TargetABI, "target-abi", cfg.TargetABI, "target ABI string to write into the manifest")
	cmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "path of the manifest file to write")
	cmd.Flags().StringVar(&cfg.Changelog, "changelog", cfg.Changelog, "changelog text of the new entry")
	cmd.Flags().BoolVar(&cfg.ChangelogFromRelease, "changelog-from-release", cfg.ChangelogFromRelease, "use the GitHub release notes as changelog")
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "print the updated manifest instead of writing it")
	cmd.Flags().SortFlags = false

	return cmd
}

func run(log *logrus.Logger, cfg *config.Config, cmd *cobra.Command, args []string) error {
	log.Debugf("starting manifest-update (version=%s)", version)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u, err := updater.New(log, cfg)
	if err != nil {
		return err
	}
	res, err := u.Run(ctx, args[0])
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res, cfg.DryRun)
	return nil
}

func printResult(w io.Writer, res *updater.Result, dryRun bool) {
	if dryRun {
		_, _ = w.Write(res.Manifest)
		fmt.Fprintf(w, "DRY RUN: %s not written for v%s\n", res.OutputFile, res.Version)
	} else {
		fmt.Fprintf(w, "OK: %s updated with v%s\n", res.OutputFile, res.Version)
	}
	fmt.Fprintf(w, "  targetAbi: %s\n", res.TargetABI)
	fmt.Fprintf(w, "  sourceUrl: %s\n", res.SourceURL)
	fmt.Fprintf(w, "  md5:       %s\n", res.Checksum)
}
