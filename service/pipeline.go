package service

import (
	"time"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/model"
	"github.com/TIANLI0/SurfaceKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// RoomState 一个房间的表面状态，由上传分割步骤写入，纹理应用步骤只读
type RoomState struct {
	ID          string
	Photo       gocv.Mat
	Mask        gocv.Mat
	Corners     []model.Polygon
	Fingerprint string
	UpdatedAt   time.Time
}

// Close 释放图像内存
func (s *RoomState) Close() {
	if s == nil {
		return
	}
	s.Photo.Close()
	s.Mask.Close()
}

// ApplyOptions 单次纹理应用参数
type ApplyOptions struct {
	Mode   MapMode
	Tile   model.TileSize
	Repeat model.Repeat
	Tone   ToneMode
}

// Result 纹理应用结果
type Result struct {
	Image gocv.Mat
	Mode  MapMode
}

// Pipeline 融合、映射、合成、亮度匹配
type Pipeline struct {
	fusion     *MaskFusion
	mapper     *GeometricMapper
	compositor *Compositor
	tone       *ToneMatcher
}

func NewPipeline(cfg *config.PipelineConfig) *Pipeline {
	return &Pipeline{
		fusion:     NewMaskFusion(),
		mapper:     NewGeometricMapper(),
		compositor: NewCompositor(),
		tone:       NewToneMatcher(cfg),
	}
}

// Run 执行一次纹理应用，不写入任何持久状态
func (p *Pipeline) Run(state *RoomState, texture gocv.Mat, opts ApplyOptions) (*Result, error) {
	if state == nil || state.Photo.Empty() {
		return nil, newError(KindInputMissing, nil, "no room photo uploaded")
	}
	if state.Mask.Empty() {
		return nil, newError(KindInputMissing, nil, "no surface mask computed")
	}
	if !sameSize(state.Photo, state.Mask) {
		return nil, newError(KindDimensionMismatch, nil, "photo %dx%d does not match mask %dx%d",
			state.Photo.Cols(), state.Photo.Rows(), state.Mask.Cols(), state.Mask.Rows())
	}

	start := time.Now()

	fused, err := p.fusion.Fuse(state.Mask, state.Corners)
	if err != nil {
		return nil, err
	}
	defer fused.Close()

	if gocv.CountNonZero(fused) == 0 {
		return nil, newError(KindNoSurface, nil, "no surface detected")
	}

	mapped, mode, err := p.mapper.Map(texture, fused, state.Corners, MapRequest{
		Mode:   opts.Mode,
		Tile:   opts.Tile,
		Repeat: opts.Repeat,
	})
	if err != nil {
		return nil, err
	}
	defer mapped.Close()

	composite, err := p.compositor.Composite(state.Photo, mapped, fused)
	if err != nil {
		return nil, err
	}
	defer composite.Close()

	out, err := p.tone.Match(state.Photo, composite, fused, opts.Tone)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("texture pipeline finished",
		zap.String("room", state.ID),
		zap.String("mode", string(mode)),
		zap.String("tone", string(opts.Tone)),
		zap.Duration("duration", time.Since(start)))

	return &Result{Image: out, Mode: mode}, nil
}
