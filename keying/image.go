package keying

import (
	"image"

	"golang.org/x/image/draw"
)

// ToNRGBA 转为原点为 (0,0) 的 NRGBA，保证 Pix 紧密排列（Stride == 4*width）
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) &&
		nrgba.Stride == 4*b.Dx() && len(nrgba.Pix) == 4*b.Dx()*b.Dy() {
		return nrgba
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Options 除像素以外的请求参数
type Options struct {
	Mode          string
	TargetColor   string
	Tolerance     float64
	ErodeStrength int
}

// NewRequestFromImage 从图像构造请求，像素数据与返回的 NRGBA 共用内存
func NewRequestFromImage(id string, img image.Image, opts Options) (*Request, *image.NRGBA) {
	nrgba := ToNRGBA(img)
	return &Request{
		ID:            id,
		Pix:           nrgba.Pix,
		Mode:          opts.Mode,
		TargetColor:   opts.TargetColor,
		Tolerance:     opts.Tolerance,
		ErodeStrength: opts.ErodeStrength,
		Width:         nrgba.Bounds().Dx(),
		Height:        nrgba.Bounds().Dy(),
	}, nrgba
}

// ToImage 把处理后的缓冲区包装成图像，不复制
func ToImage(pix []byte, width, height int) *image.NRGBA {
	return &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
}
