package model

// Point 图像坐标系中的像素点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon 表面边界的有序顶点
type Polygon []Point

// TileSize 平铺模式下单块纹理在画面中的像素尺寸
type TileSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid 判断尺寸是否为正
func (t TileSize) Valid() bool {
	return t.Width > 0 && t.Height > 0
}

// Repeat 透视模式下一个四边形覆盖的纹理重复次数
type Repeat struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BBox 边界框
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RoomInfo 上传并分割后的房间信息
type RoomInfo struct {
	RoomID          string `json:"room_id"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Fingerprint     string `json:"fingerprint"`
	Polygons        int    `json:"polygons"`
	SurfaceDetected bool   `json:"surface_detected"`
	SurfaceBox      BBox   `json:"surface_box"`
	ImageURL        string `json:"image_url"`
	Timestamp       int64  `json:"timestamp"`
}

// RoomStatus 房间当前状态
type RoomStatus struct {
	RoomID       string `json:"room_id"`
	HasPhoto     bool   `json:"has_photo"`
	HasComposite bool   `json:"has_composite"`
	ImageURL     string `json:"image_url"`
}

// ApplyRequest 应用纹理请求
type ApplyRequest struct {
	Texture    string `json:"texture" binding:"required"`
	Mode       string `json:"mode"`
	TileWidth  int    `json:"tile_width"`
	TileHeight int    `json:"tile_height"`
	RepeatX    int    `json:"repeat_x"`
	RepeatY    int    `json:"repeat_y"`
	Tone       string `json:"tone"`
}
