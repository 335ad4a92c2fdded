package rembg

import (
	"context"
	"image"

	"github.com/chaos-io/chromakey/keying"
)

type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

type DefaultRemBG struct{}

func NewDefaultRemBG() *DefaultRemBG {
	return &DefaultRemBG{}
}

func (d *DefaultRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	return img, nil
}

// ChromaKeyRemover 纯色背景去除（全局阈值 / 泛洪填充 + 边缘侵蚀）
type ChromaKeyRemover struct {
	opts keying.Options
}

func NewChromaKeyRemover(opts keying.Options) *ChromaKeyRemover {
	return &ChromaKeyRemover{opts: opts}
}

// Remove 返回新的 NRGBA 图像，输入图像若本身是紧密排列的 NRGBA 会被原地修改
func (c *ChromaKeyRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	out, _, err := c.RemoveWithStats(ctx, "", img)
	return out, err
}

func (c *ChromaKeyRemover) RemoveWithStats(ctx context.Context, id string, img image.Image) (*image.NRGBA, keying.Stats, error) {
	// 计算一旦开始便不可中断，只在开始前检查
	if err := ctx.Err(); err != nil {
		return nil, keying.Stats{}, err
	}

	req, _ := keying.NewRequestFromImage(id, img, c.opts)
	width, height := req.Width, req.Height

	resp, stats, err := keying.ProcessWithStats(req)
	if err != nil {
		return nil, stats, err
	}
	return keying.ToImage(resp.Pix, width, height), stats, nil
}
