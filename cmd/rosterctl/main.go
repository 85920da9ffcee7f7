// Command rosterctl reconstructs a club roster from a local video and
// prints it, without the queue, database or object storage.
package main

import (
	"bytes"
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

	"go.uber.org/zap"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/app"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/config"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/report"
	"github.com/JohnDoeAntler/uma-club-helper-bot/pkg/logger"
)

const (
	formatCSV       = "csv"
	formatJSON      = "json"
	formatCodeblock = "codeblock"
)

type options struct {
	videoPath string
	format    string
	cropDir   string
	appendTo  string
	logLevel  string
	analyzer  app.AnalyzerConfig
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rosterctl: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "rosterctl: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("rosterctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: rosterctl [flags] -video <file>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.videoPath, "video", "", "Roster screen recording to analyze")
	fs.StringVar(&opts.format, "format", formatCodeblock, "Output format: csv, json or codeblock")
	fs.StringVar(&opts.cropDir, "crops", "", "Directory to save every segmented row as PNG")
	fs.StringVar(&opts.appendTo, "append", "", "Wide CSV table to append a snapshot row to")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	fs.Float64Var(&opts.analyzer.SampleFPS, "fps", 12, "Frames sampled per second of video")
	fs.StringVar(&opts.analyzer.SamplerBackend, "sampler", config.SamplerOpenCV, "Frame sampler: opencv or ffmpeg")
	fs.IntVar(&opts.analyzer.NormalizeHeight, "height", 960, "Frame height after normalization")
	fs.IntVar(&opts.analyzer.OCRPageSegMode, "psm", 11, "Tesseract page segmentation mode")
	fs.IntVar(&opts.analyzer.OCRWorkers, "workers", 4, "Concurrent OCR calls per frame")
	fs.BoolVar(&opts.analyzer.RevoteAfterMerge, "revote", true, "Vote merged identities again")
	lang := fs.String("lang", "eng", "Tesseract languages joined by +")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.videoPath == "" && fs.NArg() == 1 {
		opts.videoPath = fs.Arg(0)
	}
	if opts.videoPath == "" {
		fs.Usage()
		return options{}, errors.New("missing video path")
	}
	switch opts.format {
	case formatCSV, formatJSON, formatCodeblock:
	default:
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.analyzer.OCRWorkers < 1 {
		return options{}, fmt.Errorf("workers must be at least 1, got %d", opts.analyzer.OCRWorkers)
	}
	opts.analyzer.OCRLanguages = strings.Split(*lang, "+")
	opts.analyzer.TempDir = os.TempDir()
	return opts, nil
}

func run(opts options) error {
	log, err := logger.NewDevelopment(opts.logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, err := app.NewAnalyzer(opts.analyzer, log)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := analyzer.Analyze(ctx, entity.AnalyzeRequest{
		VideoPath: opts.videoPath,
		CropDir:   opts.cropDir,
	})
	if err != nil {
		return err
	}
	log.Info("roster reconstructed",
		zap.Int("chains", len(result.Chains)),
		zap.Int("members", len(result.Members())),
		zap.Int("frames", result.Stats.FramesSampled),
		zap.Duration("elapsed", time.Since(started)),
	)

	if err := write(os.Stdout, opts.format, result, started); err != nil {
		return err
	}
	if opts.appendTo != "" {
		return appendSnapshot(opts.appendTo, result.Members(), started)
	}
	return nil
}

func write(w io.Writer, format string, result *entity.RosterResult, at time.Time) error {
	switch format {
	case formatJSON:
		return report.WriteJSON(w, result)
	case formatCSV:
		return report.WriteCSV(w, result)
	default:
		_, err := fmt.Fprintln(w, report.Codeblock(result.Members(), at))
		return err
	}
}

func appendSnapshot(path string, members []entity.Member, at time.Time) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := report.AppendWideCSV(bytes.NewReader(existing), &buf, members, at); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
