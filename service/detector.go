package service

import (
	"github.com/TIANLI0/SurfaceKit/model"
	"gocv.io/x/gocv"
)

// SurfaceDetector 语义分割：返回与照片同尺寸的 CV_8UC1 二值掩码（255 为墙面/地面）
type SurfaceDetector interface {
	Segment(photo gocv.Mat) (gocv.Mat, error)
}

// LayoutEstimator 房间布局估计：先生成估计图，再从估计图中提取表面角点多边形
type LayoutEstimator interface {
	EstimateLayout(photo gocv.Mat) (gocv.Mat, error)
	CornersFrom(estimation gocv.Mat) ([]model.Polygon, error)
}
