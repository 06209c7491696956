package service

import (
	"image"
	"sort"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/model"
	"gocv.io/x/gocv"
)

// ContourLayoutEstimator 用边缘切分房间平面，再对每个区域做多边形逼近得到角点
type ContourLayoutEstimator struct {
	minAreaRatio  float64
	approxEpsilon float64
}

func NewContourLayoutEstimator(cfg *config.DetectorConfig) *ContourLayoutEstimator {
	eps := cfg.ApproxEpsilon
	if eps <= 0 {
		eps = 0.02
	}
	return &ContourLayoutEstimator{
		minAreaRatio:  cfg.MinAreaRatio,
		approxEpsilon: eps,
	}
}

// EstimateLayout 返回估计图：255 为被强边缘分隔出的平面区域内部
func (e *ContourLayoutEstimator) EstimateLayout(photo gocv.Mat) (gocv.Mat, error) {
	if photo.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "photo is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(photo, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, 50, 150)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)

	regions := gocv.NewMat()
	gocv.BitwiseNot(edges, &regions)
	return regions, nil
}

// CornersFrom 从估计图提取多边形，按面积从大到小排列
func (e *ContourLayoutEstimator) CornersFrom(estimation gocv.Mat) ([]model.Polygon, error) {
	if estimation.Empty() {
		return nil, newError(KindInputMissing, nil, "estimation map is empty")
	}
	if estimation.Channels() != 1 {
		return nil, newError(KindDimensionMismatch, nil,
			"estimation map must have 1 channel, got %d", estimation.Channels())
	}

	contours := gocv.FindContours(estimation, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := e.minAreaRatio * float64(estimation.Rows()*estimation.Cols())

	type candidate struct {
		poly model.Polygon
		area float64
	}
	var found []candidate
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area < minArea || area == 0 {
			continue
		}

		epsilon := e.approxEpsilon * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)
		pts := approx.ToPoints()
		approx.Close()

		if len(pts) < 3 {
			continue
		}
		poly := make(model.Polygon, len(pts))
		for j, p := range pts {
			poly[j] = model.Point{X: p.X, Y: p.Y}
		}
		found = append(found, candidate{poly: poly, area: area})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].area > found[j].area })

	polygons := make([]model.Polygon, len(found))
	for i, c := range found {
		polygons[i] = c.poly
	}
	return polygons, nil
}
