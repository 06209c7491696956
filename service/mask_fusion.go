package service

import (
	"image"
	"image/color"

	"github.com/TIANLI0/SurfaceKit/model"
	"github.com/TIANLI0/SurfaceKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// MaskFusion 将分割掩码与角点多边形求交，得到最终表面掩码
type MaskFusion struct{}

func NewMaskFusion() *MaskFusion {
	return &MaskFusion{}
}

// Fuse 对每个像素计算 segmentation AND polygon
func (mf *MaskFusion) Fuse(segmentation gocv.Mat, polygons []model.Polygon) (gocv.Mat, error) {
	if segmentation.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "segmentation mask is empty")
	}
	if segmentation.Channels() != 1 {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil,
			"segmentation mask must have 1 channel, got %d", segmentation.Channels())
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(segmentation, &binary, 0, 255, gocv.ThresholdBinary)

	polyMask := RasterizePolygons(segmentation.Rows(), segmentation.Cols(), polygons)
	defer polyMask.Close()

	fused := gocv.NewMat()
	gocv.BitwiseAnd(binary, polyMask, &fused)

	return fused, nil
}

// RasterizePolygons 逐个填充多边形内部，多个多边形取并集
func RasterizePolygons(rows, cols int, polygons []model.Polygon) gocv.Mat {
	mask := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	for i, poly := range polygons {
		if len(poly) < 3 {
			utils.Logger.Debug("skip unfillable polygon",
				zap.Int("index", i),
				zap.Int("points", len(poly)))
			continue
		}

		pts := make([]image.Point, len(poly))
		for j, p := range poly {
			pts[j] = image.Point{X: p.X, Y: p.Y}
		}

		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		gocv.FillPoly(&mask, pv, white)
		pv.Close()
	}

	return mask
}
