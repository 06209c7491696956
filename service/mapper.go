package service

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/TIANLI0/SurfaceKit/model"
	"github.com/TIANLI0/SurfaceKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// MapMode 几何映射方式
type MapMode string

const (
	ModeAuto        MapMode = "auto"
	ModePerspective MapMode = "perspective"
	ModeTiling      MapMode = "tiling"
)

// ParseMapMode 解析映射方式，空串视为 auto
func ParseMapMode(s string) (MapMode, error) {
	switch MapMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModePerspective:
		return ModePerspective, nil
	case ModeTiling:
		return ModeTiling, nil
	}
	return "", newError(KindInvalidParameter, nil, "unknown mapping mode %q", s)
}

// MapRequest 单次映射参数
type MapRequest struct {
	Mode   MapMode
	Tile   model.TileSize
	Repeat model.Repeat
}

// GeometricMapper 把纹理映射到照片坐标系，输出与照片同尺寸的纹理图
type GeometricMapper struct{}

func NewGeometricMapper() *GeometricMapper {
	return &GeometricMapper{}
}

// ResolveMode 将 auto 解析为具体方式：全部多边形均为可用四边形时使用透视，否则平铺
func ResolveMode(mode MapMode, polygons []model.Polygon) MapMode {
	if mode != ModeAuto {
		return mode
	}
	if len(polygons) == 0 {
		return ModeTiling
	}
	for _, poly := range polygons {
		if _, err := quadCorners(poly); err != nil {
			return ModeTiling
		}
	}
	return ModePerspective
}

// Map 生成映射后的纹理图，返回实际使用的映射方式
func (gm *GeometricMapper) Map(texture, mask gocv.Mat, polygons []model.Polygon, req MapRequest) (gocv.Mat, MapMode, error) {
	if texture.Empty() {
		return gocv.NewMat(), "", newError(KindInputMissing, nil, "texture is empty")
	}
	if mask.Empty() {
		return gocv.NewMat(), "", newError(KindInputMissing, nil, "surface mask is empty")
	}

	mode := ResolveMode(req.Mode, polygons)
	var (
		out gocv.Mat
		err error
	)
	switch mode {
	case ModePerspective:
		out, err = gm.perspective(texture, mask.Rows(), mask.Cols(), polygons, req.Repeat)
	case ModeTiling:
		out, err = gm.tiling(texture, mask, req.Tile)
	default:
		return gocv.NewMat(), "", newError(KindInvalidParameter, nil, "unknown mapping mode %q", mode)
	}
	if err != nil {
		return gocv.NewMat(), mode, err
	}
	return out, mode, nil
}

// perspective 每个四边形独立计算射影变换，按周期边界双线性采样后只写入该四边形内部
func (gm *GeometricMapper) perspective(texture gocv.Mat, rows, cols int, polygons []model.Polygon, repeat model.Repeat) (gocv.Mat, error) {
	if len(polygons) == 0 {
		return gocv.NewMat(), newError(KindGeometry, nil, "no corner polygon for perspective mapping")
	}
	if repeat.X <= 0 || repeat.Y <= 0 {
		repeat = model.Repeat{X: 1, Y: 1}
	}

	quads := make([][4]PointF, len(polygons))
	for i, poly := range polygons {
		q, err := quadCorners(poly)
		if err != nil {
			return gocv.NewMat(), err
		}
		quads[i] = q
	}

	patch, err := Replicate(texture, repeat.X, repeat.Y)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer patch.Close()

	W, H := float64(patch.Cols()), float64(patch.Rows())
	rect := [4]PointF{{0, 0}, {W, 0}, {W, H}, {0, H}}

	out := gocv.Zeros(rows, cols, patch.Type())
	for i, quad := range quads {
		fwd, err := ComputeHomography(rect, quad)
		if err != nil {
			out.Close()
			return gocv.NewMat(), newError(KindGeometry, err, "polygon %d: no projective transform", i)
		}
		if _, err := fwd.Inverse(); err != nil {
			out.Close()
			return gocv.NewMat(), newError(KindGeometry, err, "polygon %d: transform not invertible", i)
		}

		hm := fwd.Mat()
		warped := gocv.NewMat()
		err = gocv.WarpPerspectiveWithParams(patch, &warped, hm, image.Point{X: cols, Y: rows},
			gocv.InterpolationLinear, gocv.BorderWrap, color.RGBA{})
		hm.Close()
		if err != nil {
			warped.Close()
			out.Close()
			return gocv.NewMat(), newError(KindGeometry, err, "polygon %d: warp failed", i)
		}

		// 重叠区域由后面的四边形覆盖
		region := RasterizePolygons(rows, cols, polygons[i:i+1])
		warped.CopyToWithMask(&out, region)
		region.Close()
		warped.Close()

		utils.Logger.Debug("perspective quad mapped",
			zap.Int("index", i),
			zap.Int("patch_width", patch.Cols()),
			zap.Int("patch_height", patch.Rows()))
	}

	return out, nil
}

// tiling 将纹理缩放到瓦片尺寸后，以掩码外接矩形左上角为原点周期铺满
func (gm *GeometricMapper) tiling(texture, mask gocv.Mat, size model.TileSize) (gocv.Mat, error) {
	box, ok := SurfaceBounds(mask)
	if !ok {
		return gocv.NewMat(), newError(KindNoSurface, nil, "surface mask is empty")
	}

	tile, err := ResampleTile(texture, size)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer tile.Close()

	nx := (box.Dx() + size.Width - 1) / size.Width
	ny := (box.Dy() + size.Height - 1) / size.Height
	tiled, err := Replicate(tile, nx, ny)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer tiled.Close()

	src := tiled.Region(image.Rect(0, 0, box.Dx(), box.Dy()))
	defer src.Close()

	out := gocv.Zeros(mask.Rows(), mask.Cols(), tile.Type())
	dst := out.Region(box)
	src.CopyTo(&dst)
	dst.Close()

	return out, nil
}

// SurfaceBounds 返回掩码非零像素的外接矩形
func SurfaceBounds(mask gocv.Mat) (image.Rectangle, bool) {
	if mask.Empty() || gocv.CountNonZero(mask) == 0 {
		return image.Rectangle{}, false
	}
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var box image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		box = box.Union(gocv.BoundingRect(contours.At(i)))
	}
	return box, !box.Empty()
}

// quadCorners 校验多边形为非退化的凸四边形
func quadCorners(poly model.Polygon) ([4]PointF, error) {
	var q [4]PointF
	if len(poly) != 4 {
		return q, newError(KindGeometry, nil, "perspective mapping needs 4 corners, got %d", len(poly))
	}
	for i, p := range poly {
		q[i] = PointF{X: float64(p.X), Y: float64(p.Y)}
	}

	sign := 0.0
	for i := 0; i < 4; i++ {
		c := cross(q[i], q[(i+1)%4], q[(i+2)%4])
		if math.Abs(c) < 1e-9 {
			return q, newError(KindGeometry, nil, "corner polygon has collinear points")
		}
		if sign == 0 {
			sign = math.Copysign(1, c)
		} else if math.Copysign(1, c) != sign {
			return q, newError(KindGeometry, nil, "corner polygon is not a simple convex quadrilateral")
		}
	}
	return q, nil
}

// cross 返回 (b-a)x(c-b)
func cross(a, b, c PointF) float64 {
	return (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
}
