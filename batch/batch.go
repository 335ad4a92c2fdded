package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chaos-io/chromakey/rembg"
	"github.com/chaos-io/chromakey/util"
	"go.uber.org/zap"
)

// Result 一次批处理的统计
type Result struct {
	Processed int
	Skipped   int
	Failed    int
}

// Processor 遍历输入目录，去背后以 PNG 写入输出目录
type Processor struct {
	inputDir     string
	outputDir    string
	preprocessor *rembg.Preprocessor

	mu sync.Mutex
}

func NewProcessor(inputDir, outputDir string, p *rembg.Preprocessor) *Processor {
	return &Processor{
		inputDir:     inputDir,
		outputDir:    outputDir,
		preprocessor: p,
	}
}

// Run 单个文件失败只记录日志，不中断整个批次
// 同一时刻只允许一个 Run 执行，定时任务重叠时后一次等待
func (p *Processor) Run(ctx context.Context) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer util.Trace("batch " + p.inputDir)()

	if err := os.MkdirAll(p.outputDir, os.ModePerm); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	var result Result
	err := filepath.Walk(p.inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			// 输出目录在输入目录内部时跳过
			if path != p.inputDir && filepath.Clean(path) == filepath.Clean(p.outputDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !util.IsImageFile(path) {
			result.Skipped++
			return nil
		}

		if err := p.processFile(ctx, path); err != nil {
			result.Failed++
			util.Logger.Warn("failed to process image",
				zap.String("file", path), zap.Error(err))
			return nil
		}
		result.Processed++
		return nil
	})
	if err != nil {
		return result, err
	}

	util.Logger.Info("batch finished",
		zap.String("input_dir", p.inputDir),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (p *Processor) processFile(ctx context.Context, path string) error {
	img, err := util.OpenImage(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	out, err := p.preprocessor.Process(ctx, img)
	if err != nil {
		return err
	}

	return util.SaveImage(p.OutputPath(path), out)
}

// OutputPath 保留相对目录结构，扩展名统一为 .png
func (p *Processor) OutputPath(inputPath string) string {
	rel, err := filepath.Rel(p.inputDir, inputPath)
	if err != nil {
		rel = filepath.Base(inputPath)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".png"
	return filepath.Join(p.outputDir, rel)
}
