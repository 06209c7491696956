package service

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MaskProcessor 负责处理图像掩码
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// ExtractForeground 从 GrabCut 结果中提取确定与可能前景
func (mp *MaskProcessor) ExtractForeground(mask *gocv.Mat) gocv.Mat {
	fgMask := gocv.NewMat()
	tmp1 := gocv.NewMatFromScalar(gocv.Scalar{Val1: 1}, gocv.MatTypeCV8U)
	defer tmp1.Close()
	gocv.Compare(*mask, tmp1, &fgMask, gocv.CompareEQ)

	fgMaskPr := gocv.NewMat()
	defer fgMaskPr.Close()
	tmp2 := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcProbForeground}, gocv.MatTypeCV8U)
	defer tmp2.Close()
	gocv.Compare(*mask, tmp2, &fgMaskPr, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fgMask, fgMaskPr, &combined)
	fgMask.Close()

	return combined
}

// MorphologyOptimize 开运算去噪点，闭运算补小洞
func (mp *MaskProcessor) MorphologyOptimize(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	opened.Close()

	return closed
}

// RefineEdges 精细化掩码边缘
func (mp *MaskProcessor) RefineEdges(mask *gocv.Mat) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(*mask, &blurred, image.Point{X: 3, Y: 3}, 0, 0, gocv.BorderDefault)

	final := gocv.NewMat()
	gocv.Threshold(blurred, &final, 127, 255, gocv.ThresholdBinary)

	return final
}

// DropSmallRegions 去掉面积小于 minArea 的连通区域
func (mp *MaskProcessor) DropSmallRegions(mask *gocv.Mat, minArea float64) gocv.Mat {
	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	kept := gocv.Zeros(mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) < minArea {
			continue
		}
		gocv.DrawContours(&kept, contours, i, white, -1)
	}

	final := gocv.NewMat()
	gocv.BitwiseAnd(*mask, kept, &final)
	kept.Close()

	return final
}
