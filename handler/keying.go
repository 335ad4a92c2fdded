package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chaos-io/chromakey/config"
	"github.com/chaos-io/chromakey/keying"
	"github.com/chaos-io/chromakey/middleware"
	"github.com/chaos-io/chromakey/model"
	"github.com/chaos-io/chromakey/rembg"
	"github.com/chaos-io/chromakey/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errQueueFull = errors.New("处理队列已满，请稍后重试")

type KeyingHandler struct {
	cfg          *config.Config
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewKeyingHandler(cfg *config.Config) *KeyingHandler {
	return &KeyingHandler{
		cfg:          cfg,
		semaphore:    make(chan struct{}, max(1, cfg.Keying.MaxConcurrent)),
		queueTimeout: cfg.Keying.QueueTimeout,
	}
}

// acquire 并发控制，排队超时返回 errQueueFull
func (h *KeyingHandler) acquire(ctx context.Context) (func(), error) {
	if h.queueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queueTimeout)
		defer cancel()
	}

	select {
	case h.semaphore <- struct{}{}:
		return func() { <-h.semaphore }, nil
	case <-ctx.Done():
		return nil, errQueueFull
	}
}

// Remove 上传图片去背，返回 PNG
func (h *KeyingHandler) Remove(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "请上传图片文件", err)
		return
	}

	if file.Size > h.cfg.Upload.MaxSize {
		h.fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)), nil)
		return
	}

	if !h.isAllowedType(file.Header.Get("Content-Type")) {
		h.fail(c, http.StatusUnsupportedMediaType, "不支持的文件类型", nil)
		return
	}

	opts, err := h.formOptions(c)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "参数错误", err)
		return
	}

	f, err := file.Open()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "读取文件失败", err)
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "读取文件失败", err)
		return
	}

	img, err := util.DecodeImage(data)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "图片解码失败", err)
		return
	}

	release, err := h.acquire(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	defer release()

	p := rembg.NewPreprocessor(rembg.NewChromaKeyRemover(opts), rembg.PreprocessOptions{
		MaxSide:     h.cfg.Keying.MaxSide,
		KeepAlpha:   h.cfg.Keying.KeepAlpha,
		Trim:        h.cfg.Keying.Trim,
		Premultiply: h.cfg.Keying.Premultiply,
	})
	out, err := p.Process(c.Request.Context(), img)
	if err != nil {
		h.fail(c, statusOf(err), "图片处理失败", err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		h.fail(c, http.StatusInternalServerError, "PNG 编码失败", err)
		return
	}

	util.Logger.Info("background removed",
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("filename", file.Filename),
		zap.String("mode", opts.Mode),
		zap.String("target_color", opts.TargetColor),
		zap.Float64("tolerance", opts.Tolerance),
		zap.Int("erode_strength", opts.ErodeStrength),
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()))

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Process 像素缓冲区消息接口，ID 原样返回
func (h *KeyingHandler) Process(c *gin.Context) {
	var body model.ProcessRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, http.StatusBadRequest, "请求格式错误", err)
		return
	}

	req := h.newRequest(&body)

	release, err := h.acquire(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	defer release()

	resp, stats, err := keying.ProcessWithStats(req)
	if err != nil {
		h.fail(c, statusOf(err), "图片处理失败", err)
		return
	}

	util.Logger.Debug("pixels processed",
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("id", resp.ID),
		zap.String("mode", string(stats.Mode)),
		zap.Int("removed", stats.Removed),
		zap.Int("eroded", stats.Eroded))

	c.JSON(http.StatusOK, model.ProcessResponse{
		ID:      resp.ID,
		Pixels:  resp.Pix,
		Removed: stats.Removed,
		Eroded:  stats.Eroded,
	})
}

func (h *KeyingHandler) newRequest(body *model.ProcessRequest) *keying.Request {
	d := h.cfg.Keying
	req := &keying.Request{
		ID:            body.ID,
		Pix:           body.Pixels,
		Mode:          body.Mode,
		TargetColor:   body.TargetColor,
		Tolerance:     d.Tolerance,
		ErodeStrength: d.ErodeStrength,
		Width:         body.Width,
		Height:        body.Height,
	}
	if req.Mode == "" {
		req.Mode = d.Mode
	}
	if req.TargetColor == "" {
		req.TargetColor = d.TargetColor
	}
	if body.Tolerance != nil {
		req.Tolerance = *body.Tolerance
	}
	if body.ErodeStrength != nil {
		req.ErodeStrength = *body.ErodeStrength
	}
	return req
}

func (h *KeyingHandler) formOptions(c *gin.Context) (keying.Options, error) {
	d := h.cfg.Keying
	opts := keying.Options{
		Mode:          c.DefaultPostForm("mode", d.Mode),
		TargetColor:   c.DefaultPostForm("target_color", d.TargetColor),
		Tolerance:     d.Tolerance,
		ErodeStrength: d.ErodeStrength,
	}

	if v := c.PostForm("tolerance"); v != "" {
		tolerance, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("tolerance: %w", err)
		}
		opts.Tolerance = tolerance
	}
	if v := c.PostForm("erode_strength"); v != "" {
		strength, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("erode_strength: %w", err)
		}
		opts.ErodeStrength = strength
	}
	return opts, nil
}

func (h *KeyingHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

func (h *KeyingHandler) fail(c *gin.Context, status int, message string, err error) {
	resp := model.ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
		if status >= http.StatusInternalServerError {
			util.Logger.Error(message,
				zap.String("request_id", c.GetString(middleware.RequestIDKey)),
				zap.Error(err))
		}
	}
	c.JSON(status, resp)
}

func statusOf(err error) int {
	switch {
	case keying.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, rembg.ErrNoForeground):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
