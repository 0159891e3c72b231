// Command palette extracts a color palette from a local video and writes it as JSON.
//
//	palette [-o output.json] [-v] [-v] video.mp4
//	palette -history 10
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/fiapx/fiapx-palette-service/internal/domain/port"
	"github.com/fiapx/fiapx-palette-service/internal/infra/config"
	"github.com/fiapx/fiapx-palette-service/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-palette-service/internal/infra/filesystem"
	"github.com/fiapx/fiapx-palette-service/internal/infra/sqlite"
	"github.com/fiapx/fiapx-palette-service/internal/infra/tracing"
	"github.com/fiapx/fiapx-palette-service/internal/usecase"
	"github.com/fiapx/fiapx-palette-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return fmt.Sprint(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(s string) error {
	if s == "true" || s == "" {
		*v++
		return nil
	}
	if s == "false" {
		return nil
	}
	return fmt.Errorf("invalid verbosity %q", s)
}

func (v verbosity) level() string {
	if v > 0 {
		return "debug"
	}
	return "info"
}

type options struct {
	input   string
	output  string
	verbose verbosity
	history int
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("palette", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.output, "o", "", "output JSON path (default: input with a .json extension)")
	fs.Var(&opts.verbose, "v", "increase verbosity (repeatable: -v debug, -vv per-frame trace)")
	fs.IntVar(&opts.history, "history", 0, "list the N most recent runs from PALETTE_HISTORY_DB and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: palette [-o output.json] [-v] video")
		fmt.Fprintln(stderr, "       palette -history N")
		fs.PrintDefaults()
	}

	if err := fs.Parse(expandShortFlags(args)); err != nil {
		return opts, err
	}
	if opts.history < 0 {
		return opts, fmt.Errorf("-history must not be negative, got %d", opts.history)
	}
	if opts.history > 0 {
		if fs.NArg() != 0 {
			fs.Usage()
			return opts, errors.New("-history takes no input video")
		}
		return opts, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("exactly one input video is required")
	}
	opts.input = fs.Arg(0)
	if opts.output == "" {
		opts.output = filesystem.DefaultOutputPath(opts.input)
	}
	return opts, nil
}

// expandShortFlags turns "-vv" into "-v -v".
func expandShortFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if len(a) > 2 && strings.Trim(a, "v") == "-" {
			for range len(a) - 1 {
				out = append(out, "-v")
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "palette:", err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "palette: load config:", err)
		return 2
	}

	if opts.history > 0 {
		return listHistory(cfg.HistoryDB, opts.history, stdout, stderr)
	}

	log, err := logger.NewConsole(opts.verbose.level())
	if err != nil {
		fmt.Fprintln(stderr, "palette:", err)
		return 2
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := tracing.InitLocal()
	defer tp.Shutdown(context.Background())

	exporter, closeHistory, err := buildExporter(cfg, opts, log)
	if err != nil {
		fmt.Fprintln(stderr, "palette:", err)
		return 2
	}
	defer closeHistory()

	result, err := exporter.Execute(ctx, opts.input, opts.output)
	if err != nil {
		log.Debug("extraction failed", zap.Error(err))
		if stage, ok := palette.StageOf(err); ok {
			fmt.Fprintf(stderr, "palette: %s failed: %v\n", stage, err)
		} else {
			fmt.Fprintln(stderr, "palette:", err)
		}
		return 1
	}

	log.Info("palette written",
		zap.String("path", opts.output),
		zap.Int("colors", result.Palette.Len()),
		zap.Int("sampled_frames", result.Stats.SampledFrames),
		zap.Int("skipped_frames", result.Stats.SkippedFrames),
	)
	fmt.Fprintln(stdout, opts.output)
	return 0
}

func buildExporter(cfg *config.Config, opts options, log *zap.Logger) (*usecase.ExportFileUseCase, func(), error) {
	paletteCfg := cfg.Palette()

	decoder := ffmpeg.NewDecoder(ffmpeg.DecoderConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Width:       cfg.DecodeWidth,
		CountFrames: cfg.FFprobeCountFrames,
	}, log)

	clusterer, err := usecase.NewClusterer(paletteCfg)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := usecase.NewExtractPaletteUseCase(decoder, clusterer, paletteCfg, log,
		usecase.WithFrameTrace(opts.verbose >= 2),
	)
	if err != nil {
		return nil, nil, err
	}

	var history port.JobRepository
	closeHistory := func() {}
	if cfg.HistoryDB != "" {
		repo, err := sqlite.Open(cfg.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		history = repo
		closeHistory = func() { repo.Close() }
	}

	return usecase.NewExportFileUseCase(extractor, filesystem.NewWriter(), history, log), closeHistory, nil
}

func listHistory(path string, limit int, stdout, stderr io.Writer) int {
	if path == "" {
		fmt.Fprintln(stderr, "palette: -history needs PALETTE_HISTORY_DB")
		return 2
	}
	repo, err := sqlite.Open(path)
	if err != nil {
		fmt.Fprintln(stderr, "palette:", err)
		return 1
	}
	defer repo.Close()

	runs, err := repo.Recent(context.Background(), limit)
	if err != nil {
		fmt.Fprintln(stderr, "palette:", err)
		return 1
	}

	for _, r := range runs {
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%d colors\t%d/%d frames\t%s",
			r.CreatedAt.Format(time.RFC3339), r.Status, r.VideoKey,
			r.ColorCount, r.SampledFrames-r.SkippedFrames, r.SampledFrames, r.PaletteKey)
		if r.ErrorMessage != "" {
			fmt.Fprintf(stdout, "\t%s", r.ErrorMessage)
		}
		fmt.Fprintln(stdout)
	}
	return 0
}
