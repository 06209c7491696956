package service

import (
	"image"
	"strings"

	"github.com/TIANLI0/SurfaceKit/config"
	"gocv.io/x/gocv"
)

// ToneMode 亮度匹配精度
type ToneMode string

const (
	ToneGlobal ToneMode = "global"
	ToneBands  ToneMode = "bands"
	ToneOff    ToneMode = "off"
)

// ParseToneMode 解析亮度匹配方式，空串返回 fallback
func ParseToneMode(s string, fallback ToneMode) (ToneMode, error) {
	switch ToneMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return fallback, nil
	case ToneGlobal:
		return ToneGlobal, nil
	case ToneBands:
		return ToneBands, nil
	case ToneOff:
		return ToneOff, nil
	}
	return "", newError(KindInvalidParameter, nil, "unknown tone mode %q", s)
}

// ToneMatcher 在 Lab 空间中缩放掩码区域的 L 通道，使其均值与原图一致，a/b 通道不变
type ToneMatcher struct {
	bandHeight int
}

func NewToneMatcher(cfg *config.PipelineConfig) *ToneMatcher {
	bandHeight := cfg.BandHeight
	if bandHeight <= 0 {
		bandHeight = 32
	}
	return &ToneMatcher{bandHeight: bandHeight}
}

// Match 返回调整后的新图像
func (tm *ToneMatcher) Match(photo, composite, mask gocv.Mat, mode ToneMode) (gocv.Mat, error) {
	if photo.Empty() || composite.Empty() || mask.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "tone match input is empty")
	}
	if !sameSize(photo, composite) || !sameSize(photo, mask) {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil, "tone match buffers differ in size")
	}
	if mode == ToneOff {
		return composite.Clone(), nil
	}

	photoL, err := luminance(photo)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer photoL.Close()

	compLab, err := toLab(composite)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer compLab.Close()
	channels := gocv.Split(compLab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	compL := channels[0]

	rows, cols := photo.Rows(), photo.Cols()
	globalGain, ok := luminanceGain(photoL, compL, mask, image.Rect(0, 0, cols, rows))
	if !ok {
		return composite.Clone(), nil
	}

	step := rows
	if mode == ToneBands {
		step = tm.bandHeight
	}
	for y0 := 0; y0 < rows; y0 += step {
		band := image.Rect(0, y0, cols, min(y0+step, rows))
		gain := globalGain
		if mode == ToneBands {
			if g, ok := luminanceGain(photoL, compL, mask, band); ok {
				gain = g
			}
		}
		if err := scaleLuminance(compL, mask, band, gain); err != nil {
			return gocv.NewMat(), err
		}
	}

	merged := gocv.NewMat()
	defer merged.Close()
	if err := gocv.Merge(channels, &merged); err != nil {
		return gocv.NewMat(), err
	}

	adjusted := gocv.NewMat()
	defer adjusted.Close()
	if err := gocv.CvtColor(merged, &adjusted, gocv.ColorLabToBGR); err != nil {
		return gocv.NewMat(), err
	}

	// 掩码外像素不经过 Lab 往返，保持原值
	out := composite.Clone()
	adjusted.CopyToWithMask(&out, mask)
	return out, nil
}

// MeanLuminance 计算掩码内 Lab L 通道均值（8 位刻度）
func MeanLuminance(img, mask gocv.Mat) (float64, error) {
	if mask.Empty() {
		return 0, newError(KindInputMissing, nil, "mask is empty")
	}
	if !sameSize(img, mask) {
		return 0, newError(KindDimensionMismatch, nil, "image and mask differ in size")
	}
	if gocv.CountNonZero(mask) == 0 {
		return 0, newError(KindNoSurface, nil, "mask is empty")
	}

	l, err := luminance(img)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.MeanWithMask(mask).Val1, nil
}

func toLab(img gocv.Mat) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "image is empty")
	}
	if img.Channels() != 3 {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil, "expected 3-channel image, got %d", img.Channels())
	}
	lab := gocv.NewMat()
	if err := gocv.CvtColor(img, &lab, gocv.ColorBGRToLab); err != nil {
		lab.Close()
		return gocv.NewMat(), err
	}
	return lab, nil
}

// luminance 返回 Lab 的 L 通道
func luminance(img gocv.Mat) (gocv.Mat, error) {
	lab, err := toLab(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer lab.Close()

	channels := gocv.Split(lab)
	for _, c := range channels[1:] {
		c.Close()
	}
	return channels[0], nil
}

// luminanceGain 计算区域内掩码像素的 L 均值之比
func luminanceGain(photoL, compL, mask gocv.Mat, r image.Rectangle) (float64, bool) {
	m := mask.Region(r)
	defer m.Close()
	if gocv.CountNonZero(m) == 0 {
		return 0, false
	}

	p := photoL.Region(r)
	defer p.Close()
	c := compL.Region(r)
	defer c.Close()

	current := c.MeanWithMask(m).Val1
	if current <= 0 {
		return 0, false
	}
	return p.MeanWithMask(m).Val1 / current, true
}

// scaleLuminance 原地缩放区域内掩码像素的 L 值，超出范围时饱和
func scaleLuminance(l, mask gocv.Mat, r image.Rectangle, gain float64) error {
	m := mask.Region(r)
	defer m.Close()
	if gocv.CountNonZero(m) == 0 {
		return nil
	}

	roi := l.Region(r)
	defer roi.Close()
	scaled := gocv.NewMat()
	defer scaled.Close()
	if err := roi.ConvertToWithParams(&scaled, gocv.MatTypeCV8U, float32(gain), 0); err != nil {
		return err
	}
	return scaled.CopyToWithMask(&roi, m)
}
