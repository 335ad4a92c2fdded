package keying

import (
	"image/color"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// GreenScreenHex 绿幕颜色，命中时使用 HSV 判定
const GreenScreenHex = "#00FF00"

// maxRGBDistanceSq RGB 立方体对角线长度的平方，(0,0,0) 到 (255,255,255)
const maxRGBDistanceSq = 3 * 255 * 255

var hexPattern = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// ParseHex 解析 #RRGGBB（# 可省略，大小写不敏感，前后有空白视为非法）
func ParseHex(s string) (color.NRGBA, bool) {
	if !hexPattern.MatchString(s) {
		return color.NRGBA{}, false
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return color.NRGBA{}, false
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, true
}

// HexToRGB 解析失败时退回黑色
func HexToRGB(s string) color.NRGBA {
	c, ok := ParseHex(s)
	if !ok {
		return color.NRGBA{A: 255}
	}
	return c
}

// IsGreenScreen 判断目标色是否为绿幕色，只忽略大小写
func IsGreenScreen(targetHex string) bool {
	return strings.EqualFold(targetHex, GreenScreenHex)
}

// Classifier 判断单个像素是否属于背景
type Classifier interface {
	IsBackground(r, g, b uint8) bool
}

// NewClassifier 根据目标色选择判定方式：
//
//	#00FF00 → HSV 绿幕规则
//	其他颜色 → RGB 欧氏距离规则
func NewClassifier(targetHex string, tolerance float64) Classifier {
	if IsGreenScreen(targetHex) {
		return newHSVClassifier(tolerance)
	}
	return newDistanceClassifier(HexToRGB(targetHex), tolerance)
}

// IsBackground 单次判定，批量处理请使用 NewClassifier
func IsBackground(r, g, b uint8, targetHex string, tolerance float64) bool {
	return NewClassifier(targetHex, tolerance).IsBackground(r, g, b)
}

// HSVClassifier 绿幕判定
type HSVClassifier struct {
	MinSaturation float64
	MinValue      float64
}

func newHSVClassifier(tolerance float64) *HSVClassifier {
	factor := tolerance / 100
	return &HSVClassifier{
		MinSaturation: 0.25 * (1 - factor),
		MinValue:      0.35 * (1 - factor),
	}
}

func (c *HSVClassifier) IsBackground(r, g, b uint8) bool {
	// 绿色明显占优时直接判为背景，与容差无关
	if isDominantGreen(r, g, b) {
		return true
	}

	h, s, v := toHSV(r, g, b)
	return h >= 60 && h <= 180 && s > c.MinSaturation && v > c.MinValue
}

func isDominantGreen(r, g, b uint8) bool {
	ri, gi, bi := int(r), int(g), int(b)
	return gi > ri+30 && gi > bi+30 && gi > 80
}

// toHSV h ∈ [0,360)，s、v ∈ [0,1]
func toHSV(r, g, b uint8) (h, s, v float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return c.Hsv()
}

// DistanceClassifier 一般颜色判定
// 距离阈值 = 对角线长度(≈441.67) × 容差百分比，比较时用平方避免开方误差
type DistanceClassifier struct {
	Target      color.NRGBA
	thresholdSq float64
}

func newDistanceClassifier(target color.NRGBA, tolerance float64) *DistanceClassifier {
	factor := tolerance / 100
	c := &DistanceClassifier{
		Target:      target,
		thresholdSq: maxRGBDistanceSq * factor * factor,
	}
	// 负阈值永远不匹配
	if factor < 0 {
		c.thresholdSq = -1
	}
	return c
}

func (c *DistanceClassifier) IsBackground(r, g, b uint8) bool {
	return float64(rgbDistanceSq(r, g, b, c.Target)) <= c.thresholdSq
}

func rgbDistanceSq(r, g, b uint8, t color.NRGBA) int {
	dr := int(r) - int(t.R)
	dg := int(g) - int(t.G)
	db := int(b) - int(t.B)
	return dr*dr + dg*dg + db*db
}
