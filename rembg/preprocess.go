package rembg

import (
	"context"
	"errors"
	"image"

	"github.com/chaos-io/chromakey/keying"
)

var ErrNoForeground = errors.New("no foreground left after background removal")

type PreprocessOptions struct {
	// MaxSide 最长边上限，<= 0 不缩放
	MaxSide int
	// KeepAlpha 输入已有透明信息时跳过去背
	KeepAlpha bool
	// Trim 裁剪到主体 bounding box
	Trim bool
	// Premultiply 输出预乘 alpha
	Premultiply bool
}

type Preprocessor struct {
	RemBG Remover
	opts  PreprocessOptions
}

func NewPreprocessor(remover Remover, opts PreprocessOptions) *Preprocessor {
	if remover == nil {
		remover = NewDefaultRemBG()
	}
	return &Preprocessor{
		RemBG: remover,
		opts:  opts,
	}
}

// Process 把任意输入图片变成
//
//	尺寸 ≤ MaxSide
//	背景已移除（alpha = 0）
//	可选：裁剪到主体、预乘 alpha
func (p *Preprocessor) Process(ctx context.Context, input image.Image) (*image.NRGBA, error) {
	// 复制为 NRGBA，不修改调用方的图像
	src := cloneNRGBA(input)

	// 1. 判断是否已有有效 Alpha
	hasAlpha := p.opts.KeepAlpha && hasUsefulAlpha(src)

	// 2. 缩放
	src = resizeWithinMax(src, p.opts.MaxSide)

	// 3. 背景去除
	output := src
	if !hasAlpha {
		bgRemoved, err := p.RemBG.Remove(ctx, src)
		if err != nil {
			return nil, err
		}
		output = keying.ToNRGBA(bgRemoved)
	}

	// 4. 裁剪到主体
	if p.opts.Trim {
		bbox, ok := alphaBBox(output)
		if !ok {
			return nil, ErrNoForeground
		}
		output = crop(output, bbox)
	}

	// 5. 预乘 Alpha
	if p.opts.Premultiply {
		premultiply(output)
	}

	return output, nil
}
