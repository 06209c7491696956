package service

import (
	"image"

	"gocv.io/x/gocv"
)

// GrabCut 掩码取值
const (
	gcProbBackground = 2
	gcProbForeground = 3
)

// FlatnessDetector 检测低梯度的平坦区域，墙面与地面通常落在其中
type FlatnessDetector struct {
	kernel int
}

func NewFlatnessDetector(kernel int) *FlatnessDetector {
	if kernel < 3 {
		kernel = 3
	}
	if kernel%2 == 0 {
		kernel++
	}
	return &FlatnessDetector{kernel: kernel}
}

// Detect 返回平坦度图，255 为平坦
func (fd *FlatnessDetector) Detect(img *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	gradX := gocv.NewMat()
	gradY := gocv.NewMat()
	defer gradX.Close()
	defer gradY.Close()

	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absGradX := gocv.NewMat()
	absGradY := gocv.NewMat()
	defer absGradX.Close()
	defer absGradY.Close()

	gocv.ConvertScaleAbs(gradX, &absGradX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absGradY, 1, 0)

	gradient := gocv.NewMat()
	defer gradient.Close()
	gocv.AddWeighted(absGradX, 0.5, absGradY, 0.5, 0, &gradient)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gradient, &blurred, image.Point{X: fd.kernel, Y: fd.kernel}, 0, 0, gocv.BorderDefault)

	busy := gocv.NewMat()
	defer busy.Close()
	gocv.Threshold(blurred, &busy, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	flat := gocv.NewMat()
	gocv.BitwiseNot(busy, &flat)
	return flat
}

// CreateMask 根据平坦度图创建 GrabCut 初始掩码，平坦处为可能前景，其余为可能背景
func (fd *FlatnessDetector) CreateMask(flatness *gocv.Mat) (gocv.Mat, error) {
	if flatness.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "flatness map is empty")
	}

	src := *flatness
	if src.Channels() > 1 {
		channels := gocv.Split(src)
		for _, c := range channels[1:] {
			c.Close()
		}
		src = channels[0]
		defer src.Close()
	}

	mask := gocv.NewMat()
	gocv.Threshold(src, &mask, 128, 1, gocv.ThresholdBinary)
	mask.AddUChar(gcProbBackground)
	return mask, nil
}
