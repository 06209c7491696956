package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/TIANLI0/SurfaceKit/model"
	"gocv.io/x/gocv"
)

// matFromGrid 由二维数组构造单通道 Mat
func matFromGrid(t *testing.T, grid [][]uint8) gocv.Mat {
	t.Helper()
	rows, cols := len(grid), len(grid[0])
	buf := newPixelBuffer(rows, cols, 1)
	for y, row := range grid {
		copy(buf.data[y*cols:(y+1)*cols], row)
	}
	m, err := buf.toMat()
	if err != nil {
		t.Fatalf("toMat: %v", err)
	}
	return m
}

// solidBGR 构造纯色三通道 Mat
func solidBGR(t *testing.T, rows, cols int, b, g, r uint8) gocv.Mat {
	t.Helper()
	buf := newPixelBuffer(rows, cols, 3)
	for i := 0; i < rows*cols; i++ {
		buf.data[i*3] = b
		buf.data[i*3+1] = g
		buf.data[i*3+2] = r
	}
	m, err := buf.toMat()
	if err != nil {
		t.Fatalf("toMat: %v", err)
	}
	return m
}

// patternBGR 每个像素颜色唯一的三通道 Mat
func patternBGR(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	buf := newPixelBuffer(rows, cols, 3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := buf.offset(x, y)
			buf.data[i] = uint8(10 + 20*x)
			buf.data[i+1] = uint8(10 + 30*y)
			buf.data[i+2] = uint8(50 + 7*x + 11*y)
		}
	}
	m, err := buf.toMat()
	if err != nil {
		t.Fatalf("toMat: %v", err)
	}
	return m
}

// rectMask 在 rows x cols 的掩码中把 r 区域置为 255
func rectMask(t *testing.T, rows, cols int, r image.Rectangle) gocv.Mat {
	t.Helper()
	buf := newPixelBuffer(rows, cols, 1)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			buf.data[y*cols+x] = 255
		}
	}
	m, err := buf.toMat()
	if err != nil {
		t.Fatalf("toMat: %v", err)
	}
	return m
}

func mustBuffer(t *testing.T, m gocv.Mat) *pixelBuffer {
	t.Helper()
	buf, err := bufferFromMat(m)
	if err != nil {
		t.Fatalf("bufferFromMat: %v", err)
	}
	return buf
}

func rectPolygon(r image.Rectangle) model.Polygon {
	return model.Polygon{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// writeTexturePNG 在目录中写入一张 w x h 的纹理
func writeTexturePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(40 + 10*x), G: uint8(60 + 10*y), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, encodeTestPNG(t, img), 0644); err != nil {
		t.Fatalf("write texture: %v", err)
	}
	return path
}

func encodeTestPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// roomPhotoPNG 生成一张上半部分偏亮、下半部分偏暗的房间照片
func roomPhotoPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		v := uint8(200 - 100*y/h)
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return encodeTestPNG(t, img)
}

// fullDetector 把整张照片判为表面
type fullDetector struct{}

func (fullDetector) Segment(photo gocv.Mat) (gocv.Mat, error) {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), photo.Rows(), photo.Cols(), gocv.MatTypeCV8UC1), nil
}

// fixedEstimator 返回固定的角点多边形
type fixedEstimator struct {
	polygons []model.Polygon
}

func (fixedEstimator) EstimateLayout(photo gocv.Mat) (gocv.Mat, error) {
	return gocv.NewMat(), nil
}

func (e fixedEstimator) CornersFrom(estimation gocv.Mat) ([]model.Polygon, error) {
	return e.polygons, nil
}

// pixelBuffer 连续存储的 8 位像素数据，用于构造和检查测试图像
type pixelBuffer struct {
	rows     int
	cols     int
	channels int
	data     []byte
}

func newPixelBuffer(rows, cols, channels int) *pixelBuffer {
	return &pixelBuffer{
		rows:     rows,
		cols:     cols,
		channels: channels,
		data:     make([]byte, rows*cols*channels),
	}
}

// bufferFromMat 复制 Mat 的像素数据
func bufferFromMat(m gocv.Mat) (*pixelBuffer, error) {
	if m.Empty() {
		return nil, newError(KindInputMissing, nil, "image buffer is empty")
	}
	switch m.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return nil, newError(KindDimensionMismatch, nil, "unsupported buffer type %v", m.Type())
	}

	return &pixelBuffer{
		rows:     m.Rows(),
		cols:     m.Cols(),
		channels: m.Channels(),
		data:     m.ToBytes(),
	}, nil
}

// toMat 生成持有独立内存的 Mat
func (b *pixelBuffer) toMat() (gocv.Mat, error) {
	mt := gocv.MatTypeCV8UC3
	switch b.channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 4:
		mt = gocv.MatTypeCV8UC4
	}

	tmp, err := gocv.NewMatFromBytes(b.rows, b.cols, mt, b.data)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer tmp.Close()

	return tmp.Clone(), nil
}

func (b *pixelBuffer) offset(x, y int) int {
	return (y*b.cols + x) * b.channels
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
