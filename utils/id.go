package utils

import (
	"strconv"
	"time"
)

// GenerateID 生成基于时间戳的ID
func GenerateID() int64 {
	return time.Now().UnixNano()
}

// GenerateRoomID 生成新的房间ID
func GenerateRoomID() string {
	return "room-" + strconv.FormatInt(GenerateID(), 36)
}
