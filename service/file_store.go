package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/TIANLI0/SurfaceKit/utils"
	"go.uber.org/zap"
)

const (
	photoFile = "photo.png"
	maskFile  = "mask.png"
	metaFile  = "corners.json"
)

// FileStore 以目录保存房间状态：<data_dir>/<room>/{photo.png,mask.png,corners.json}
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Save(ctx context.Context, roomID string, blobs *RoomBlobs) error {
	if !ValidRoomID(roomID) {
		return newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	roomDir := filepath.Join(s.dir, roomID)
	if err := os.MkdirAll(roomDir, 0755); err != nil {
		return err
	}

	// 先删除旧元数据，中途失败时房间视为未上传，不会混用新旧 blob
	if err := os.Remove(filepath.Join(roomDir, metaFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// 元数据最后写入，读取方以其存在作为状态完整的标志
	files := []struct {
		name string
		data []byte
	}{
		{photoFile, blobs.Photo},
		{maskFile, blobs.Mask},
		{metaFile, blobs.Meta},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := utils.WriteFileAtomic(filepath.Join(roomDir, f.name), f.data); err != nil {
			return err
		}
	}

	utils.Logger.Debug("room state saved",
		zap.String("room", roomID),
		zap.String("dir", roomDir))
	return nil
}

func (s *FileStore) Load(ctx context.Context, roomID string) (*RoomBlobs, error) {
	if !ValidRoomID(roomID) {
		return nil, newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	roomDir := filepath.Join(s.dir, roomID)

	var blobs RoomBlobs
	targets := []struct {
		name string
		dst  *[]byte
	}{
		{metaFile, &blobs.Meta},
		{photoFile, &blobs.Photo},
		{maskFile, &blobs.Mask},
	}
	for _, t := range targets {
		data, err := os.ReadFile(filepath.Join(roomDir, t.name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, newError(KindInputMissing, nil, "room %s has no uploaded photo", roomID)
			}
			return nil, err
		}
		*t.dst = data
	}
	return &blobs, nil
}

func (s *FileStore) Exists(ctx context.Context, roomID string) (bool, error) {
	if !ValidRoomID(roomID) {
		return false, newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	roomDir := filepath.Join(s.dir, roomID)
	for _, name := range []string{metaFile, photoFile, maskFile} {
		if _, err := os.Stat(filepath.Join(roomDir, name)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

func (s *FileStore) Delete(ctx context.Context, roomID string) error {
	if !ValidRoomID(roomID) {
		return newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	return os.RemoveAll(filepath.Join(s.dir, roomID))
}
