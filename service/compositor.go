package service

import (
	"gocv.io/x/gocv"
)

// Compositor 按掩码逐像素选择纹理或原图
type Compositor struct{}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Composite mask 非零处取 mapped，其余取 photo；不做 alpha 混合
func (c *Compositor) Composite(photo, mapped, mask gocv.Mat) (gocv.Mat, error) {
	if photo.Empty() || mapped.Empty() || mask.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "composite input is empty")
	}
	if !sameSize(photo, mapped) || !sameSize(photo, mask) {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil,
			"photo %dx%d, texture %dx%d, mask %dx%d",
			photo.Cols(), photo.Rows(), mapped.Cols(), mapped.Rows(), mask.Cols(), mask.Rows())
	}
	if photo.Channels() != 3 {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil,
			"photo must have 3 channels, got %d", photo.Channels())
	}
	if mask.Channels() != 1 {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil,
			"mask must have 1 channel, got %d", mask.Channels())
	}

	src := mapped
	switch mapped.Channels() {
	case 3:
	case 1:
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(mapped, &bgr, gocv.ColorGrayToBGR)
		src = bgr
	case 4:
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(mapped, &bgr, gocv.ColorBGRAToBGR)
		src = bgr
	default:
		return gocv.NewMat(), newError(KindDimensionMismatch, nil,
			"unsupported texture channel count %d", mapped.Channels())
	}

	result := photo.Clone()
	src.CopyToWithMask(&result, mask)
	return result, nil
}

func sameSize(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols()
}
