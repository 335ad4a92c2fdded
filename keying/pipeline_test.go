package keying

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeFlood, ParseMode("flood"))
	assert.Equal(t, ModeGlobal, ParseMode(" FLOOD "))
	assert.Equal(t, ModeGlobal, ParseMode("Flood"))
	assert.Equal(t, ModeGlobal, ParseMode(" flood"))
	assert.Equal(t, ModeGlobal, ParseMode("global"))
	assert.Equal(t, ModeGlobal, ParseMode(""))
	assert.Equal(t, ModeGlobal, ParseMode("anything-else"))
}

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Request {
		return &Request{ID: "a", Pix: make([]byte, 2*3*4), Width: 2, Height: 3, Tolerance: 50}
	}

	tests := []struct {
		name    string
		mutate  func(r *Request) *Request
		wantErr error
	}{
		{name: "合法请求", mutate: func(r *Request) *Request { return r }},
		{name: "nil 请求", mutate: func(r *Request) *Request { return nil }, wantErr: ErrNilRequest},
		{name: "宽度为0", mutate: func(r *Request) *Request { r.Width = 0; return r }, wantErr: ErrInvalidDimensions},
		{name: "高度为负", mutate: func(r *Request) *Request { r.Height = -1; return r }, wantErr: ErrInvalidDimensions},
		{name: "缓冲区过短", mutate: func(r *Request) *Request { r.Pix = r.Pix[:10]; return r }, wantErr: ErrBufferSize},
		{name: "缓冲区过长", mutate: func(r *Request) *Request { r.Pix = append(r.Pix, 0); return r }, wantErr: ErrBufferSize},
		{name: "容差为负", mutate: func(r *Request) *Request { r.Tolerance = -0.1; return r }, wantErr: ErrToleranceRange},
		{name: "容差超过100", mutate: func(r *Request) *Request { r.Tolerance = 100.5; return r }, wantErr: ErrToleranceRange},
		{name: "容差 NaN", mutate: func(r *Request) *Request { r.Tolerance = math.NaN(); return r }, wantErr: ErrToleranceRange},
		{name: "容差边界 0", mutate: func(r *Request) *Request { r.Tolerance = 0; return r }},
		{name: "容差边界 100", mutate: func(r *Request) *Request { r.Tolerance = 100; return r }},
		{name: "侵蚀为负", mutate: func(r *Request) *Request { r.ErodeStrength = -1; return r }, wantErr: ErrErodeStrength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(valid()).Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestProcess_RejectsBeforeMutation(t *testing.T) {
	pix := newPix(4, 4, green)
	pix = pix[:len(pix)-4]
	before := append([]byte(nil), pix...)

	resp, err := Process(&Request{ID: "x", Pix: pix, Width: 4, Height: 4, TargetColor: "#00FF00", Tolerance: 50})
	require.ErrorIs(t, err, ErrBufferSize)
	assert.Nil(t, resp)
	assert.Equal(t, before, pix)
}

func TestProcess_GlobalGreenScreen(t *testing.T) {
	pix := newPix(4, 4, green)
	resp, err := Process(&Request{
		ID:          "img-1",
		Pix:         pix,
		Mode:        "global",
		TargetColor: "#00FF00",
		Tolerance:   50,
		Width:       4,
		Height:      4,
	})
	require.NoError(t, err)
	assert.Equal(t, "img-1", resp.ID)
	for i := 3; i < len(resp.Pix); i += 4 {
		assert.Zero(t, resp.Pix[i])
	}
}

func TestProcess_FloodBlockedByBorder(t *testing.T) {
	pix := newPix(4, 4, black)
	for y := 1; y <= 2; y++ {
		for x := 1; x <= 2; x++ {
			setPixel(pix, 4, x, y, green)
		}
	}

	resp, stats, err := ProcessWithStats(&Request{
		ID:          "img-2",
		Pix:         pix,
		Mode:        "flood",
		TargetColor: "#00FF00",
		Tolerance:   10,
		Width:       4,
		Height:      4,
	})
	require.NoError(t, err)
	assert.Equal(t, ModeFlood, stats.Mode)
	assert.Zero(t, stats.Removed)
	for y := 1; y <= 2; y++ {
		for x := 1; x <= 2; x++ {
			assert.Equal(t, uint8(255), alphaAt(resp.Pix, 4, x, y))
		}
	}
}

func TestProcess_ExactMatchAtZeroTolerance(t *testing.T) {
	for _, target := range []string{"#00FF00", "#123456"} {
		c := HexToRGB(target)
		pix := newPix(3, 3, [3]uint8{c.R, c.G, c.B})
		resp, err := Process(&Request{Pix: pix, TargetColor: target, Width: 3, Height: 3})
		require.NoError(t, err)
		for i := 3; i < len(resp.Pix); i += 4 {
			assert.Zero(t, resp.Pix[i], "target %s", target)
		}
	}
}

func TestProcess_RemoveThenErode(t *testing.T) {
	// 7x7 黑底，中间 5x5 红色主体
	pix := newPix(7, 7, black)
	for y := 1; y <= 5; y++ {
		for x := 1; x <= 5; x++ {
			setPixel(pix, 7, x, y, red)
		}
	}

	resp, stats, err := ProcessWithStats(&Request{
		ID:            "img-3",
		Pix:           pix,
		Mode:          "flood",
		TargetColor:   "#000000",
		Tolerance:     5,
		ErodeStrength: 1,
		Width:         7,
		Height:        7,
	})
	require.NoError(t, err)
	assert.Equal(t, 24, stats.Removed)
	assert.Equal(t, 16, stats.Eroded)
	assert.Equal(t, []string{
		".......",
		".......",
		"..###..",
		"..###..",
		"..###..",
		".......",
		".......",
	}, alphaMask(resp.Pix, 7, 7))
}

func TestProcess_ZeroCopyOwnership(t *testing.T) {
	pix := newPix(2, 2, red)
	req := &Request{ID: "z", Pix: pix, Width: 2, Height: 2, TargetColor: "#000000"}

	resp, err := Process(req)
	require.NoError(t, err)
	assert.Same(t, &pix[0], &resp.Pix[0])
	assert.Nil(t, req.Pix, "request gives up the buffer")
}

func TestNewRequestFromImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 13, 12))
	for y := 10; y < 12; y++ {
		for x := 10; x < 13; x++ {
			src.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	src.Set(11, 11, color.RGBA{R: 255, A: 255})

	req, img := NewRequestFromImage("from-img", src, Options{Mode: "global", TargetColor: "#00FF00", Tolerance: 20})
	assert.Equal(t, 3, req.Width)
	assert.Equal(t, 2, req.Height)
	require.Len(t, req.Pix, 3*2*4)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	resp, err := Process(req)
	require.NoError(t, err)

	out := ToImage(resp.Pix, 3, 2)
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(1, 1))
	// img 与结果共用内存
	assert.Equal(t, uint8(0), img.NRGBAAt(2, 1).A)
}

func TestToNRGBA_ReusesTightBuffer(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.Same(t, src, ToNRGBA(src))

	sub := src.SubImage(image.Rect(1, 1, 3, 3))
	got := ToNRGBA(sub)
	assert.NotSame(t, src, got)
	assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
	assert.Len(t, got.Pix, 2*2*4)
}
