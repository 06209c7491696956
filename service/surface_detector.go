package service

import (
	"image"
	"time"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// GrabCutDetector 以平坦区域为可能前景做 GrabCut 分割，作为墙面/地面分割模型的替代实现
type GrabCutDetector struct {
	iterations         int
	maxSize            int
	kernelSize         int
	minAreaRatio       float64
	complexityAnalyzer *ComplexityAnalyzer
	flatnessDetector   *FlatnessDetector
	maskProcessor      *MaskProcessor
}

func NewGrabCutDetector(cfg *config.DetectorConfig) *GrabCutDetector {
	return &GrabCutDetector{
		iterations:         max(1, cfg.Iterations),
		maxSize:            cfg.MaxSize,
		kernelSize:         max(3, cfg.MorphKernelSize),
		minAreaRatio:       cfg.MinAreaRatio,
		complexityAnalyzer: NewComplexityAnalyzer(),
		flatnessDetector:   NewFlatnessDetector(cfg.FlatnessKernel),
		maskProcessor:      NewMaskProcessor(),
	}
}

// Segment 返回与照片同尺寸的二值表面掩码
func (d *GrabCutDetector) Segment(photo gocv.Mat) (gocv.Mat, error) {
	if photo.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "photo is empty")
	}

	startTime := time.Now()
	width := photo.Cols()
	height := photo.Rows()

	// 智能缩放
	scaledImg, scale := smartResize(&photo, d.maxSize)
	defer scaledImg.Close()

	complexity := d.complexityAnalyzer.Analyze(&scaledImg)

	flatness := d.flatnessDetector.Detect(&scaledImg)
	defer flatness.Close()

	flatPixels := gocv.CountNonZero(flatness)
	total := scaledImg.Rows() * scaledImg.Cols()
	if flatPixels == 0 || flatPixels == total {
		// GrabCut 需要前景与背景两类样本
		utils.Logger.Warn("flatness map is uniform, skip grabcut",
			zap.Int("flat_pixels", flatPixels),
			zap.Int("total", total))
		return d.restoreSize(flatness, width, height, scale), nil
	}

	mask, err := d.flatnessDetector.CreateMask(&flatness)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mask.Close()

	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	iterations := complexity.Iterations(d.iterations)
	gocv.GrabCut(scaledImg, &mask, image.Rectangle{}, &bgdModel, &fgdModel, iterations, gocv.GCInitWithMask)

	fgMask := d.maskProcessor.ExtractForeground(&mask)
	defer fgMask.Close()

	optimized := d.maskProcessor.MorphologyOptimize(&fgMask, d.kernelSize)
	defer optimized.Close()

	cleaned := d.maskProcessor.DropSmallRegions(&optimized, d.minAreaRatio*float64(total))
	defer cleaned.Close()

	result := d.restoreSize(cleaned, width, height, scale)

	utils.Logger.Info("surface segmented",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("complexity", complexity.Level),
		zap.Int("iterations", iterations),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}

// restoreSize 还原到原始尺寸并重新二值化
func (d *GrabCutDetector) restoreSize(mask gocv.Mat, width, height int, scale float64) gocv.Mat {
	if scale == 1.0 {
		return mask.Clone()
	}
	resized := gocv.NewMat()
	gocv.Resize(mask, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(resized, &binary, 127, 255, gocv.ThresholdBinary)
	resized.Close()

	return d.maskProcessor.RefineEdges(&binary)
}

// smartResize 智能缩放图像以适应最大尺寸
func smartResize(img *gocv.Mat, maxSize int) (gocv.Mat, float64) {
	width := img.Cols()
	height := img.Rows()
	maxDim := max(width, height)
	if maxSize <= 0 || maxDim <= maxSize {
		return img.Clone(), 1.0
	}

	scale := float64(maxSize) / float64(maxDim)
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)

	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: newWidth, Y: newHeight}, 0, 0, gocv.InterpolationArea)

	return resized, scale
}
