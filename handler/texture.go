package handler

import (
	"net/http"

	"github.com/TIANLI0/SurfaceKit/model"
	"github.com/TIANLI0/SurfaceKit/service"
	"github.com/gin-gonic/gin"
)

type TextureHandler struct {
	roomService *service.RoomService
}

func NewTextureHandler(rooms *service.RoomService) *TextureHandler {
	return &TextureHandler{roomService: rooms}
}

// List 列出纹理库
func (h *TextureHandler) List(c *gin.Context) {
	names, err := h.roomService.Textures()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "读取纹理库失败",
			Error:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, model.TextureListResponse{Success: true, Textures: names})
}

// Serve 按文件名返回纹理图片，只在纹理库目录内查找
func (h *TextureHandler) Serve(c *gin.Context) {
	path, err := h.roomService.TexturePath(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "纹理不存在",
			Kind:    string(service.KindNotFound),
		})
		return
	}
	c.File(path)
}
