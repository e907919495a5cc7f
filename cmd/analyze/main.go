package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kata_review/internal/adapters"
	"kata_review/internal/app"
	"kata_review/internal/bootstrap"
	errs "kata_review/internal/errors"
	"kata_review/internal/logger"
	"kata_review/internal/report"
	"kata_review/internal/repository"
	analysisUC "kata_review/internal/usecase/analysis"
	"kata_review/internal/usecase/katago"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	formatName := flag.String("format", "yaml", "report format: yaml, pdf or dot")
	visits := flag.Uint("visits", 0, "override analysis.max_visits")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: analyze [-config kata_review.toml] [-format yaml|pdf|dot] game.sgf [more.sgf ...]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	format, err := report.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := bootstrap.Setup(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *visits > 0 {
		cfg.Analysis.MaxVisits = uint32(*visits)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, log, format, flag.Args())
	stop()
	_ = log.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg *bootstrap.Config, log *zap.SugaredLogger, format report.Format, files []string) int {
	codec := katago.NewCodec(katago.NewInterpreter(cfg.Analysis.ReportAs, cfg.Analysis.TolerateIncomplete, log))
	engine := repository.NewSupervisor(adapters.KatagoLauncher(cfg.Katago, log), codec, cfg.Katago.Timeout, log)
	defer func() {
		if err := engine.Close(context.Background()); err != nil {
			log.Errorw("failed to stop engine", "error", err)
		}
	}()

	stores := &app.Stores{}
	defer stores.Close(context.Background())
	// archive and cache are optional in batch mode
	if err := stores.OpenArchive(ctx, cfg, log); err != nil {
		log.Errorw("run archive disabled", "driver", cfg.Store.Driver, "error", err)
	}
	stores.OpenCache(ctx, cfg, log)

	analyzer := analysisUC.NewAnalyzer(*cfg, engine, log)
	stores.Wire(analyzer)

	failed := 0
	for i, path := range files {
		if i > 0 && cfg.Batch.Cooldown > 0 {
			log.Infof("cooling down for %s", cfg.Batch.CooldownDuration())
			select {
			case <-ctx.Done():
			case <-time.After(cfg.Batch.CooldownDuration()):
			}
		}
		if ctx.Err() != nil {
			log.Warnw("interrupted", "remaining", len(files)-i)
			return 130
		}

		out, err := analyzeFile(ctx, analyzer, cfg.Save, format, path)
		if err != nil {
			failed++
			var plyErr *errs.PlyError
			if errors.As(err, &plyErr) {
				log.Errorw("analysis failed", "file", path, "ply", plyErr.Ply, "error", plyErr.Err)
			} else {
				log.Errorw("analysis failed", "file", path, "error", err)
			}
			continue
		}
		fmt.Println(out)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func analyzeFile(ctx context.Context, analyzer *analysisUC.Analyzer, save bootstrap.SaveConfig, format report.Format, path string) (string, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	run, err := analyzer.RunText(ctx, filepath.Base(path), string(text), nil)
	if err != nil {
		return "", err
	}

	out := OutputPath(path, format, save.AsNewFile)
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := report.Write(f, format, run); err != nil {
		f.Close()
		return "", err
	}
	return out, f.Close()
}

// OutputPath puts the report next to the record: game.sgf becomes
// game_analyzed.yaml, or game.yaml when asNewFile is off.
func OutputPath(path string, format report.Format, asNewFile bool) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if asNewFile {
		base += "_analyzed"
	}
	return base + format.Ext()
}
