package service

import (
	"context"
	"errors"
	"time"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore 使用 Redis 保存房间状态，三个 blob 在同一事务中写入
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisStore{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func roomKey(roomID, part string) string {
	return "room:" + roomID + ":" + part
}

// Save 原子写入照片、掩码与角点
func (s *RedisStore) Save(ctx context.Context, roomID string, blobs *RoomBlobs) error {
	if !ValidRoomID(roomID) {
		return newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(roomID, "photo"), blobs.Photo, s.ttl)
		pipe.Set(ctx, roomKey(roomID, "mask"), blobs.Mask, s.ttl)
		pipe.Set(ctx, roomKey(roomID, "meta"), blobs.Meta, s.ttl)
		return nil
	})
	if err != nil {
		utils.Logger.Error("failed to save room state",
			zap.String("room", roomID), zap.Error(err))
		return err
	}
	return nil
}

// Load 读取房间状态，任一部分缺失视为未上传
func (s *RedisStore) Load(ctx context.Context, roomID string) (*RoomBlobs, error) {
	if !ValidRoomID(roomID) {
		return nil, newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}

	pipe := s.client.Pipeline()
	photo := pipe.Get(ctx, roomKey(roomID, "photo"))
	mask := pipe.Get(ctx, roomKey(roomID, "mask"))
	meta := pipe.Get(ctx, roomKey(roomID, "meta"))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var blobs RoomBlobs
	for _, part := range []struct {
		cmd *redis.StringCmd
		dst *[]byte
	}{
		{photo, &blobs.Photo},
		{mask, &blobs.Mask},
		{meta, &blobs.Meta},
	} {
		data, err := part.cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, newError(KindInputMissing, nil, "room %s has no uploaded photo", roomID)
			}
			return nil, err
		}
		*part.dst = data
	}
	return &blobs, nil
}

// Exists 三个 key 均存在才视为已上传
func (s *RedisStore) Exists(ctx context.Context, roomID string) (bool, error) {
	if !ValidRoomID(roomID) {
		return false, newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	n, err := s.client.Exists(ctx,
		roomKey(roomID, "photo"),
		roomKey(roomID, "mask"),
		roomKey(roomID, "meta")).Result()
	if err != nil {
		return false, err
	}
	return n == 3, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	if !ValidRoomID(roomID) {
		return newError(KindInputMissing, nil, "invalid room id %q", roomID)
	}
	return s.client.Del(ctx,
		roomKey(roomID, "photo"),
		roomKey(roomID, "mask"),
		roomKey(roomID, "meta")).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
