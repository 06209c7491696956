package model

// 纹理应用结果状态
const (
	StateSuccess   = "success"
	StateNoSurface = "no_surface"
	StateError     = "error"
)

// UploadResponse 上传响应
type UploadResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *RoomInfo `json:"data,omitempty"`
}

// ApplyResponse 纹理应用响应
type ApplyResponse struct {
	State    string `json:"state"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"msg"`
	RoomPath string `json:"room_path,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StatusResponse 房间状态响应
type StatusResponse struct {
	Success bool        `json:"success"`
	Data    *RoomStatus `json:"data,omitempty"`
}

// TextureListResponse 纹理库列表响应
type TextureListResponse struct {
	Success  bool     `json:"success"`
	Textures []string `json:"textures"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}
