package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/scenematch/internal/config"
	"github.com/kikiluvv/scenematch/internal/ffmpeg"
	"github.com/kikiluvv/scenematch/internal/logging"
	"github.com/kikiluvv/scenematch/internal/matcher"
	"github.com/kikiluvv/scenematch/internal/report"
	"github.com/kikiluvv/scenematch/pkg/util"
)

var (
	cfgFile string
	verbose bool

	templatePath string
	workers      int
	format       string
	perMetric    bool
	exportPath   string
	copyCodec    bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scenematch",
	Short: "scenematch - find the scene that looks most like a template image",
	Long: "Splits a video into scenes, compares each scene's hue/saturation histogram " +
		"with a template image under four metrics and ranks the scenes.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./scenematch.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	matchCmd.Flags().StringVarP(&templatePath, "template", "t", "", "template image (overrides template.path)")
	matchCmd.Flags().IntVarP(&workers, "workers", "w", 0, "sampling workers (overrides concurrency)")
	matchCmd.Flags().StringVarP(&format, "format", "f", "", "report format: text or yaml")
	matchCmd.Flags().BoolVar(&perMetric, "per-metric", false, "include per-metric ranks in the report")
	matchCmd.Flags().StringVarP(&exportPath, "export", "o", "", "write the best matching scene to this file")
	matchCmd.Flags().BoolVar(&copyCodec, "copy", false, "export with stream copy instead of re-encoding")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(configCmd)
}

// applyFlags lets command line flags override file configuration
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("template") {
		cfg.Template.Path = templatePath
	}
	if cmd.Flags().Changed("workers") {
		cfg.Concurrency = workers
	}
	if cmd.Flags().Changed("format") {
		cfg.Report.Format = format
	}
	if cmd.Flags().Changed("per-metric") {
		cfg.Report.PerMetric = perMetric
	}
	return cfg.Validate()
}

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(log.Logger, ffmpeg.Config{
		BinaryPath:     cfg.FFmpeg.BinaryPath,
		Threads:        cfg.FFmpeg.Threads,
		SceneThreshold: cfg.FFmpeg.SceneThreshold,
	})
}

func newMatcher(cfg *config.Config, exec *ffmpeg.Executor) (*matcher.Matcher, error) {
	return matcher.New(log.Logger, matcher.Config{
		TemplatePath: cfg.Template.Path,
		Histogram:    cfg.HistogramConfig(),
		Workers:      cfg.Concurrency,
	}, exec, exec)
}

func checkVideo(path string) error {
	if !util.FileExists(path) {
		return fmt.Errorf("video not found: %s", path)
	}
	return nil
}

var matchCmd = &cobra.Command{
	Use:   "match [input video]",
	Short: "Rank the video's scenes against the template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if err := applyFlags(cmd, cfg); err != nil {
			return err
		}
		if err := checkVideo(args[0]); err != nil {
			return err
		}

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}
		m, err := newMatcher(cfg, exec)
		if err != nil {
			return err
		}

		res, err := m.Match(cmd.Context(), args[0])
		if err != nil {
			log.Error().Err(err).Str("video", args[0]).Msg("match failed")
			return err
		}

		err = report.Write(cmd.OutOrStdout(), res.Final, report.Options{
			Format:    cfg.Report.Format,
			PerMetric: cfg.Report.PerMetric,
		})
		if err != nil {
			return err
		}

		if exportPath == "" {
			return nil
		}

		output := exportPath
		if !filepath.IsAbs(output) {
			output = filepath.Join(cfg.WorkDir, output)
		}
		best := res.Best()
		if err := exec.ExportScene(cmd.Context(), args[0], best, output, copyCodec); err != nil {
			return err
		}

		log.Info().
			Int("scene", best.Num).
			Str("output", output).
			Msg("best scene exported")

		return nil
	},
}

var scenesCmd = &cobra.Command{
	Use:   "scenes [input video]",
	Short: "List detected scenes and their sampling midpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if err := checkVideo(args[0]); err != nil {
			return err
		}

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		log.Info().
			Dur("duration", info.Duration).
			Int("width", info.Width).
			Int("height", info.Height).
			Float64("fps", info.FPS).
			Str("codec", info.VideoCodec).
			Msg("video metadata")

		m, err := newMatcher(cfg, exec)
		if err != nil {
			return err
		}

		scenes, fallback, err := m.Scenes(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, sc := range scenes {
			fmt.Fprintln(out, sc)
		}
		if fallback {
			fmt.Fprintln(out, "no scene changes detected; whole video used as one scene")
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.FromContext(cmd.Context()).Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "scenematch.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}
