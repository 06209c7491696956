package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/model"
	"github.com/TIANLI0/SurfaceKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	roomImageName      = "room.jpg"
	compositeImageBase = "textured"
	staticURLPrefix    = "/static"
)

// ApplyParams 纹理应用请求，零值字段使用配置默认值
type ApplyParams struct {
	Texture string
	Mode    string
	Tile    model.TileSize
	Repeat  model.Repeat
	Tone    string
}

// ApplyOutcome 纹理应用结果
type ApplyOutcome struct {
	RoomPath string
	Mode     MapMode
}

// RoomService 管理房间的上传分割与纹理应用
type RoomService struct {
	cfg          *config.Config
	store        RoomStore
	library      *TextureLibrary
	pipeline     *Pipeline
	fusion       *MaskFusion
	detector     SurfaceDetector
	estimator    LayoutEstimator
	locks        *RoomLocks
	semaphore    chan struct{}
	queueTimeout time.Duration
	format       OutputFormat
}

func NewRoomService(cfg *config.Config, store RoomStore, library *TextureLibrary,
	detector SurfaceDetector, estimator LayoutEstimator) (*RoomService, error) {
	format, err := ParseOutputFormat(cfg.Pipeline.OutputFormat)
	if err != nil {
		return nil, err
	}

	return &RoomService{
		cfg:          cfg,
		store:        store,
		library:      library,
		pipeline:     NewPipeline(&cfg.Pipeline),
		fusion:       NewMaskFusion(),
		detector:     detector,
		estimator:    estimator,
		locks:        NewRoomLocks(),
		semaphore:    make(chan struct{}, max(1, cfg.Pipeline.MaxConcurrent)),
		queueTimeout: time.Duration(cfg.Pipeline.QueueTimeout) * time.Second,
		format:       format,
	}, nil
}

// acquire 并发控制，返回释放函数
func (s *RoomService) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		return func() { <-s.semaphore }, nil
	case <-ctx.Done():
		return nil, ErrQueueTimeout
	}
}

// Upload 解码照片、分割、估计角点、融合掩码，并替换房间的表面状态
func (s *RoomService) Upload(ctx context.Context, roomID string, data []byte) (*model.RoomInfo, error) {
	if !ValidRoomID(roomID) {
		return nil, newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	log := utils.RoomLogger(roomID)

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	photo, err := DecodeImage(data)
	if err != nil {
		return nil, newError(KindInputMissing, err, "uploaded file is not a readable image")
	}
	defer photo.Close()

	if s.cfg.Upload.MaxHeight > 0 && photo.Rows() > s.cfg.Upload.MaxHeight {
		resized := resizeToHeight(photo, s.cfg.Upload.MaxHeight)
		photo.Close()
		photo = resized
	}

	segmentation, err := s.detector.Segment(photo)
	if err != nil {
		return nil, fmt.Errorf("segment surface: %w", err)
	}
	defer segmentation.Close()
	if !sameSize(segmentation, photo) {
		return nil, newError(KindDimensionMismatch, nil, "segmentation mask %dx%d does not match photo %dx%d",
			segmentation.Cols(), segmentation.Rows(), photo.Cols(), photo.Rows())
	}

	estimation, err := s.estimator.EstimateLayout(photo)
	if err != nil {
		return nil, fmt.Errorf("estimate layout: %w", err)
	}
	defer estimation.Close()

	corners, err := s.estimator.CornersFrom(estimation)
	if err != nil {
		return nil, fmt.Errorf("extract corners: %w", err)
	}

	fused, err := s.fusion.Fuse(segmentation, corners)
	if err != nil {
		return nil, err
	}
	defer fused.Close()

	state := &RoomState{
		ID:          roomID,
		Photo:       photo,
		Mask:        fused,
		Corners:     corners,
		Fingerprint: utils.BytesMD5(data),
		UpdatedAt:   time.Now(),
	}
	blobs, err := EncodeRoomState(state)
	if err != nil {
		return nil, err
	}
	preview, err := EncodeMat(photo, FormatJPEG, s.cfg.Pipeline.JPEGQuality)
	if err != nil {
		return nil, err
	}

	box, detected := SurfaceBounds(fused)

	// 替换状态期间阻塞该房间的纹理应用
	unlock := s.locks.Write(roomID)
	defer unlock()

	if err := s.store.Save(ctx, roomID, blobs); err != nil {
		return nil, fmt.Errorf("save room state: %w", err)
	}
	roomDir, err := s.roomDir(roomID)
	if err != nil {
		return nil, err
	}
	if err := utils.WriteFileAtomic(filepath.Join(roomDir, roomImageName), preview); err != nil {
		return nil, fmt.Errorf("write room image: %w", err)
	}
	// 旧的合成结果基于旧照片，不再有效
	if err := os.Remove(s.compositePath(roomID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("failed to remove stale composite", zap.Error(err))
	}

	log.Info("room surface state replaced",
		zap.Int("width", photo.Cols()),
		zap.Int("height", photo.Rows()),
		zap.Int("polygons", len(corners)),
		zap.Bool("surface_detected", detected))

	return &model.RoomInfo{
		RoomID:          roomID,
		Width:           photo.Cols(),
		Height:          photo.Rows(),
		Fingerprint:     state.Fingerprint,
		Polygons:        len(corners),
		SurfaceDetected: detected,
		SurfaceBox: model.BBox{
			X:      box.Min.X,
			Y:      box.Min.Y,
			Width:  box.Dx(),
			Height: box.Dy(),
		},
		ImageURL:  s.roomURL(roomID, roomImageName),
		Timestamp: state.UpdatedAt.Unix(),
	}, nil
}

// ApplyTexture 对房间原始照片应用纹理，只有全部步骤成功后才替换合成结果
func (s *RoomService) ApplyTexture(ctx context.Context, roomID string, params ApplyParams) (*ApplyOutcome, error) {
	if !ValidRoomID(roomID) {
		return nil, newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	opts, err := s.applyOptions(params)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	unlock := s.locks.Read(roomID)
	defer unlock()

	blobs, err := s.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	state, err := DecodeRoomState(roomID, blobs)
	if err != nil {
		return nil, err
	}
	defer state.Close()

	texture, err := s.library.Load(params.Texture, TextureConstraints{})
	if err != nil {
		return nil, err
	}
	defer texture.Close()

	result, err := s.pipeline.Run(state, texture, opts)
	if err != nil {
		return nil, err
	}
	defer result.Image.Close()

	encoded, err := EncodeMat(result.Image, s.format, s.cfg.Pipeline.JPEGQuality)
	if err != nil {
		return nil, err
	}
	if _, err := s.roomDir(roomID); err != nil {
		return nil, err
	}
	if err := utils.WriteFileAtomic(s.compositePath(roomID), encoded); err != nil {
		return nil, fmt.Errorf("write composite: %w", err)
	}

	utils.RoomLogger(roomID).Info("texture applied",
		zap.String("texture", params.Texture),
		zap.String("mode", string(result.Mode)),
		zap.Int("bytes", len(encoded)))

	return &ApplyOutcome{
		RoomPath: s.roomURL(roomID, s.compositeName()),
		Mode:     result.Mode,
	}, nil
}

// Status 返回房间是否已上传以及当前展示的图片，合成结果优先
func (s *RoomService) Status(ctx context.Context, roomID string) (*model.RoomStatus, error) {
	if !ValidRoomID(roomID) {
		return nil, newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}

	unlock := s.locks.Read(roomID)
	defer unlock()

	exists, err := s.store.Exists(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// 状态过期后残留的合成图不再对外暴露
	status := &model.RoomStatus{RoomID: roomID, HasPhoto: exists}
	if !exists {
		return status, nil
	}
	if fileExists(s.compositePath(roomID)) {
		status.HasComposite = true
		status.ImageURL = s.roomURL(roomID, s.compositeName())
	} else {
		status.ImageURL = s.roomURL(roomID, roomImageName)
	}
	return status, nil
}

// Delete 删除房间状态与生成的图片
func (s *RoomService) Delete(ctx context.Context, roomID string) error {
	if !ValidRoomID(roomID) {
		return newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}

	unlock := s.locks.Write(roomID)
	defer unlock()

	if err := s.store.Delete(ctx, roomID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.cfg.Server.StaticDir, "rooms", roomID))
}

// Textures 列出纹理库
func (s *RoomService) Textures() ([]string, error) {
	return s.library.List()
}

// TexturePath 解析纹理文件路径，供静态下载使用
func (s *RoomService) TexturePath(name string) (string, error) {
	return s.library.Resolve(name)
}

func (s *RoomService) applyOptions(params ApplyParams) (ApplyOptions, error) {
	mode, err := ParseMapMode(params.Mode)
	if err != nil {
		return ApplyOptions{}, err
	}
	if params.Mode == "" {
		if mode, err = ParseMapMode(s.cfg.Pipeline.Mode); err != nil {
			return ApplyOptions{}, err
		}
	}
	fallbackTone, err := ParseToneMode(s.cfg.Pipeline.ToneMode, ToneGlobal)
	if err != nil {
		return ApplyOptions{}, err
	}
	tone, err := ParseToneMode(params.Tone, fallbackTone)
	if err != nil {
		return ApplyOptions{}, err
	}

	tile := params.Tile
	if tile.Width == 0 && tile.Height == 0 {
		tile = model.TileSize{Width: s.cfg.Texture.TileWidth, Height: s.cfg.Texture.TileHeight}
	}
	if !tile.Valid() {
		return ApplyOptions{}, newError(KindDimensionMismatch, nil,
			"tile size must be positive, got %dx%d", tile.Width, tile.Height)
	}

	repeat := params.Repeat
	if repeat.X == 0 && repeat.Y == 0 {
		repeat = model.Repeat{X: s.cfg.Texture.RepeatX, Y: s.cfg.Texture.RepeatY}
	}
	if repeat.X <= 0 || repeat.Y <= 0 {
		return ApplyOptions{}, newError(KindDimensionMismatch, nil,
			"repeat counts must be positive, got %dx%d", repeat.X, repeat.Y)
	}

	return ApplyOptions{Mode: mode, Tile: tile, Repeat: repeat, Tone: tone}, nil
}

func (s *RoomService) roomDir(roomID string) (string, error) {
	dir := filepath.Join(s.cfg.Server.StaticDir, "rooms", roomID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *RoomService) compositeName() string {
	return compositeImageBase + "." + string(s.format)
}

func (s *RoomService) compositePath(roomID string) string {
	return filepath.Join(s.cfg.Server.StaticDir, "rooms", roomID, s.compositeName())
}

func (s *RoomService) roomURL(roomID, name string) string {
	return staticURLPrefix + "/rooms/" + roomID + "/" + name
}

// resizeToHeight 等比缩放到指定高度
func resizeToHeight(img gocv.Mat, height int) gocv.Mat {
	width := max(1, img.Cols()*height/img.Rows())
	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationArea)
	return resized
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
