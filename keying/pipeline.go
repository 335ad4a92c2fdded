package keying

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNilRequest        = errors.New("nil request")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	ErrBufferSize        = errors.New("pixel buffer size does not match dimensions")
	ErrToleranceRange    = errors.New("tolerance out of range [0,100]")
	ErrErodeStrength     = errors.New("negative erode strength")
)

// IsValidationError 请求本身不合法（而非处理失败）
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNilRequest) ||
		errors.Is(err, ErrInvalidDimensions) ||
		errors.Is(err, ErrBufferSize) ||
		errors.Is(err, ErrToleranceRange) ||
		errors.Is(err, ErrErodeStrength)
}

type Mode string

const (
	ModeGlobal Mode = "global"
	ModeFlood  Mode = "flood"
)

// ParseMode 只有精确的 "flood" 选择泛洪填充，其余（包括大小写不同）都按全局阈值处理
func ParseMode(s string) Mode {
	if Mode(s) == ModeFlood {
		return ModeFlood
	}
	return ModeGlobal
}

// Request 一次去背请求
// Pix 为 RGBA8、行优先的像素数据，处理过程中原地修改
type Request struct {
	ID            string
	Pix           []byte
	Mode          string
	TargetColor   string
	Tolerance     float64
	ErodeStrength int
	Width         int
	Height        int
}

// Response 原样返回 ID，Pix 与请求共用同一块内存
type Response struct {
	ID  string
	Pix []byte
}

// Stats 处理统计
type Stats struct {
	Mode    Mode
	Removed int
	Eroded  int
}

// Validate 检查尺寸、缓冲区长度与数值参数
func (r *Request) Validate() error {
	if r == nil {
		return ErrNilRequest
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, r.Width, r.Height)
	}
	if want := r.Width * r.Height * 4; len(r.Pix) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(r.Pix), want)
	}
	if math.IsNaN(r.Tolerance) || r.Tolerance < 0 || r.Tolerance > 100 {
		return fmt.Errorf("%w: %v", ErrToleranceRange, r.Tolerance)
	}
	if r.ErodeStrength < 0 {
		return fmt.Errorf("%w: %d", ErrErodeStrength, r.ErodeStrength)
	}
	return nil
}

// Process 去背 + 边缘侵蚀
// 调用后请求中的像素数据归返回值所有，调用方不应再依赖原内容
func Process(req *Request) (*Response, error) {
	resp, _, err := ProcessWithStats(req)
	return resp, err
}

func ProcessWithStats(req *Request) (*Response, Stats, error) {
	if err := req.Validate(); err != nil {
		return nil, Stats{}, err
	}

	classifier := NewClassifier(req.TargetColor, req.Tolerance)
	stats := Stats{Mode: ParseMode(req.Mode)}

	switch stats.Mode {
	case ModeFlood:
		stats.Removed = RemoveFlood(req.Pix, req.Width, req.Height, classifier)
	default:
		stats.Removed = RemoveGlobal(req.Pix, classifier)
	}

	stats.Eroded = Erode(req.Pix, req.Width, req.Height, req.ErodeStrength)

	resp := &Response{ID: req.ID, Pix: req.Pix}
	req.Pix = nil
	return resp, stats, nil
}
