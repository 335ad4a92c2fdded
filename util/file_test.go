package util

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	nhttp "github.com/chaos-io/chromakey/util/http"
	"github.com/chaos-io/chromakey/util/http/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(2, 1, color.NRGBA{R: 255, A: 0})
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDownloadImage(t *testing.T) {
	ctrl := gomock.NewController(t)
	cli := mocks.NewMockIClient(ctrl)

	data := encodePNG(t, testImage())
	cli.EXPECT().
		DoHTTPRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *nhttp.RequestParam) error {
			assert.Equal(t, "https://example.com/a.png", p.RequestURI)
			assert.Equal(t, "GET", p.Method)
			raw, ok := p.Response.(*[]byte)
			require.True(t, ok)
			*raw = data
			return nil
		})

	img, err := DownloadImage(context.Background(), cli, "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestDownloadImage_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	cli := mocks.NewMockIClient(ctrl)

	cli.EXPECT().DoHTTPRequest(gomock.Any(), gomock.Any()).Return(errors.New("HTTP request failed with status 404"))
	_, err := DownloadImage(context.Background(), cli, "https://example.com/missing.png")
	assert.ErrorContains(t, err, "status 404")

	cli.EXPECT().
		DoHTTPRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *nhttp.RequestParam) error {
			*p.Response.(*[]byte) = []byte("not an image")
			return nil
		})
	_, err = DownloadImage(context.Background(), cli, "https://example.com/bad.png")
	assert.ErrorContains(t, err, "decode image")
}

func TestSaveAndOpenImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.png")

	src := testImage()
	require.NoError(t, SaveImage(path, src))

	got, err := OpenImage(path)
	require.NoError(t, err)

	nrgba, ok := got.(*image.NRGBA)
	require.True(t, ok, "png with alpha decodes as NRGBA")
	assert.Equal(t, src.Pix, nrgba.Pix)
}

func TestOpenImage_Missing(t *testing.T) {
	_, err := OpenImage(filepath.Join(t.TempDir(), "none.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.webp", "e.tiff", "f.bmp", "g.gif"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"a.txt", "b", "c.png.bak"} {
		assert.False(t, IsImageFile(name), name)
	}
}

func TestTrace(t *testing.T) {
	defer Trace("trace test")()
}
