package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chaos-io/chromakey/batch"
	"github.com/chaos-io/chromakey/config"
	"github.com/chaos-io/chromakey/handler"
	"github.com/chaos-io/chromakey/keying"
	"github.com/chaos-io/chromakey/rembg"
	"github.com/chaos-io/chromakey/util"
	nhttp "github.com/chaos-io/chromakey/util/http"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	serve := flag.Bool("serve", false, "启动 HTTP 服务")
	runBatch := flag.Bool("batch", false, "批量处理 batch.input_dir 下的图片")
	input := flag.String("input", "", "输入图片路径或 URL")
	output := flag.String("output", "", "输出 PNG 路径，默认 output/<ksuid>_cutout.png")
	mode := flag.String("mode", "", "去背模式：flood / global")
	targetColor := flag.String("color", "", "背景色，如 #00FF00")
	tolerance := flag.Float64("tolerance", -1, "容差 0-100")
	erode := flag.Int("erode", -1, "边缘侵蚀次数")
	flag.Parse()

	cfg := config.New(*configPath)
	applyFlags(cfg, *mode, *targetColor, *tolerance, *erode)

	if err := util.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case *serve:
		err = runServer(ctx, cfg)
	case *runBatch:
		err = runBatchJob(ctx, cfg)
	case *input != "":
		err = runSingle(ctx, cfg, *input, *output)
	default:
		flag.Usage()
		return
	}
	if err != nil {
		util.Logger.Fatal("failed", zap.Error(err))
	}
}

func applyFlags(cfg *config.Config, mode, targetColor string, tolerance float64, erode int) {
	if mode != "" {
		cfg.Keying.Mode = mode
	}
	if targetColor != "" {
		cfg.Keying.TargetColor = targetColor
	}
	if tolerance >= 0 {
		cfg.Keying.Tolerance = tolerance
	}
	if erode >= 0 {
		cfg.Keying.ErodeStrength = erode
	}
}

func newPreprocessor(cfg *config.Config) *rembg.Preprocessor {
	remover := rembg.NewChromaKeyRemover(keying.Options{
		Mode:          cfg.Keying.Mode,
		TargetColor:   cfg.Keying.TargetColor,
		Tolerance:     cfg.Keying.Tolerance,
		ErodeStrength: cfg.Keying.ErodeStrength,
	})
	return rembg.NewPreprocessor(remover, rembg.PreprocessOptions{
		MaxSide:     cfg.Keying.MaxSide,
		KeepAlpha:   cfg.Keying.KeepAlpha,
		Trim:        cfg.Keying.Trim,
		Premultiply: cfg.Keying.Premultiply,
	})
}

func runSingle(ctx context.Context, cfg *config.Config, input, output string) error {
	defer util.Trace("remove background")()

	var img image.Image
	var err error
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		img, err = util.DownloadImage(ctx, nhttp.NewHTTPClient(), input)
	} else {
		img, err = util.OpenImage(input)
	}
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	out, err := newPreprocessor(cfg).Process(ctx, img)
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(cfg.Batch.OutputDir, ksuid.New().String()+"_cutout.png")
	}
	if err := util.SaveImage(output, out); err != nil {
		return err
	}

	util.Logger.Info("done", zap.String("output", output))
	return nil
}

func runBatchJob(ctx context.Context, cfg *config.Config) error {
	processor := batch.NewProcessor(cfg.Batch.InputDir, cfg.Batch.OutputDir, newPreprocessor(cfg))

	if cfg.Batch.Schedule == "" {
		_, err := processor.Run(ctx)
		return err
	}

	scheduler, err := batch.NewScheduler(cfg.Batch.Schedule, processor)
	if err != nil {
		return fmt.Errorf("invalid batch schedule: %w", err)
	}
	util.Logger.Info("batch scheduler started", zap.String("schedule", cfg.Batch.Schedule))
	scheduler.Start()

	<-ctx.Done()
	scheduler.Stop()
	return nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	util.Logger.Info("starting chromakey server",
		zap.String("version", handler.Version),
		zap.String("build_time", handler.BuildTime),
		zap.String("git_commit", handler.GitCommit))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.NewRouter(cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
