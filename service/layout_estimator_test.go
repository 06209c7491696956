package service

import (
	"image"
	"testing"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/model"
)

func near(p model.Point, x, y, tol int) bool {
	dx, dy := p.X-x, p.Y-y
	return dx >= -tol && dx <= tol && dy >= -tol && dy <= tol
}

func TestCornersFromRectangle(t *testing.T) {
	cfg := config.Default().Detector
	est := NewContourLayoutEstimator(&cfg)

	region := rectMask(t, 60, 80, image.Rect(10, 10, 50, 40))
	defer region.Close()

	polygons, err := est.CornersFrom(region)
	if err != nil {
		t.Fatalf("CornersFrom: %v", err)
	}
	if len(polygons) != 1 {
		t.Fatalf("got %d polygons, want 1", len(polygons))
	}
	poly := polygons[0]
	if len(poly) != 4 {
		t.Fatalf("polygon has %d corners, want 4: %v", len(poly), poly)
	}

	for _, c := range [][2]int{{10, 10}, {49, 10}, {49, 39}, {10, 39}} {
		found := false
		for _, p := range poly {
			if near(p, c[0], c[1], 2) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no corner near (%d,%d) in %v", c[0], c[1], poly)
		}
	}

	if _, err := quadCorners(poly); err != nil {
		t.Fatalf("extracted rectangle is not a usable quad: %v", err)
	}
}

func TestCornersFromDropsSmallRegions(t *testing.T) {
	cfg := config.Default().Detector
	cfg.MinAreaRatio = 0.1
	est := NewContourLayoutEstimator(&cfg)

	// 4x4 区域只占画面 0.3%
	region := rectMask(t, 60, 80, image.Rect(2, 2, 6, 6))
	defer region.Close()

	polygons, err := est.CornersFrom(region)
	if err != nil {
		t.Fatalf("CornersFrom: %v", err)
	}
	if len(polygons) != 0 {
		t.Fatalf("got %d polygons, want none", len(polygons))
	}
}

func TestEstimateLayoutPlainWall(t *testing.T) {
	cfg := config.Default().Detector
	est := NewContourLayoutEstimator(&cfg)

	photo := solidBGR(t, 60, 80, 180, 180, 180)
	defer photo.Close()

	estimation, err := est.EstimateLayout(photo)
	if err != nil {
		t.Fatalf("EstimateLayout: %v", err)
	}
	defer estimation.Close()
	if estimation.Rows() != 60 || estimation.Cols() != 80 || estimation.Channels() != 1 {
		t.Fatalf("estimation %dx%dx%d", estimation.Cols(), estimation.Rows(), estimation.Channels())
	}

	polygons, err := est.CornersFrom(estimation)
	if err != nil {
		t.Fatalf("CornersFrom: %v", err)
	}
	if len(polygons) != 1 || len(polygons[0]) != 4 {
		t.Fatalf("plain wall gave %v, want one quad covering the frame", polygons)
	}
}
