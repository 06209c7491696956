package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/TIANLI0/SurfaceKit/model"
	"gocv.io/x/gocv"
)

// RoomBlobs 房间状态的持久化形式，掩码与照片均为无损 PNG
type RoomBlobs struct {
	Photo []byte
	Mask  []byte
	Meta  []byte
}

// RoomStore 按房间 ID 保存状态，Load 找不到时返回 InputMissing
type RoomStore interface {
	Save(ctx context.Context, roomID string, blobs *RoomBlobs) error
	Load(ctx context.Context, roomID string) (*RoomBlobs, error)
	// Exists 只检查状态是否完整，不读取 blob
	Exists(ctx context.Context, roomID string) (bool, error)
	Delete(ctx context.Context, roomID string) error
}

type roomMeta struct {
	Fingerprint string          `json:"fingerprint"`
	UpdatedAt   int64           `json:"updated_at"`
	Corners     []model.Polygon `json:"corners"`
}

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidRoomID 房间 ID 只允许字母、数字、下划线和短横线
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

// EncodeRoomState 将房间状态编码为可持久化的 blob
func EncodeRoomState(state *RoomState) (*RoomBlobs, error) {
	photo, err := encodePNG(state.Photo)
	if err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	mask, err := encodePNG(state.Mask)
	if err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}

	corners := state.Corners
	if corners == nil {
		corners = []model.Polygon{}
	}
	meta, err := json.Marshal(roomMeta{
		Fingerprint: state.Fingerprint,
		UpdatedAt:   state.UpdatedAt.Unix(),
		Corners:     corners,
	})
	if err != nil {
		return nil, fmt.Errorf("encode corners: %w", err)
	}

	return &RoomBlobs{Photo: photo, Mask: mask, Meta: meta}, nil
}

// DecodeRoomState 从 blob 还原房间状态
func DecodeRoomState(roomID string, blobs *RoomBlobs) (*RoomState, error) {
	var meta roomMeta
	if err := json.Unmarshal(blobs.Meta, &meta); err != nil {
		return nil, fmt.Errorf("decode corners: %w", err)
	}

	photo, err := gocv.IMDecode(blobs.Photo, gocv.IMReadColor)
	if err != nil || photo.Empty() {
		photo.Close()
		return nil, newError(KindInputMissing, err, "stored photo for room %s is unreadable", roomID)
	}
	mask, err := gocv.IMDecode(blobs.Mask, gocv.IMReadGrayScale)
	if err != nil || mask.Empty() {
		photo.Close()
		mask.Close()
		return nil, newError(KindInputMissing, err, "stored mask for room %s is unreadable", roomID)
	}

	return &RoomState{
		ID:          roomID,
		Photo:       photo,
		Mask:        mask,
		Corners:     meta.Corners,
		Fingerprint: meta.Fingerprint,
		UpdatedAt:   time.Unix(meta.UpdatedAt, 0),
	}, nil
}

func encodePNG(m gocv.Mat) ([]byte, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
