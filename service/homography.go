package service

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// PointF 浮点坐标
type PointF struct {
	X, Y float64
}

// Homography 3x3 射影变换，行优先存储
type Homography [9]float64

// ComputeHomography 求解把 src[i] 映射到 dst[i] 的射影变换，h22 固定为 1
func ComputeHomography(src, dst [4]PointF) (Homography, error) {
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		// x = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
		A.Set(r, 0, X)
		A.Set(r, 1, Y)
		A.Set(r, 2, 1)
		A.Set(r, 6, -X*x)
		A.Set(r, 7, -Y*x)
		b.SetVec(r, x)

		// y = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
		A.Set(r+1, 3, X)
		A.Set(r+1, 4, Y)
		A.Set(r+1, 5, 1)
		A.Set(r+1, 6, -X*y)
		A.Set(r+1, 7, -Y*y)
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return Homography{}, fmt.Errorf("solve homography: %w", err)
	}

	return Homography{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	}, nil
}

// Apply 变换一个点，点落在无穷远处时返回 false
func (h Homography) Apply(x, y float64) (float64, float64, bool) {
	w := h[6]*x + h[7]*y + h[8]
	if math.Abs(w) < 1e-12 {
		return 0, 0, false
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w, true
}

// Inverse 返回逆变换
func (h Homography) Inverse() (Homography, error) {
	m := mat.NewDense(3, 3, h[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, fmt.Errorf("invert homography: %w", err)
	}

	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = inv.At(r, c)
		}
	}
	return out, nil
}

// Mat 转为 3x3 CV64F 矩阵，调用方负责 Close
func (h Homography) Mat() gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r*3+c])
		}
	}
	return m
}
