package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/model"
	"github.com/TIANLI0/SurfaceKit/service"
	"github.com/TIANLI0/SurfaceKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RoomHandler struct {
	cfg         *config.Config
	roomService *service.RoomService
}

func NewRoomHandler(cfg *config.Config, rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{
		cfg:         cfg,
		roomService: rooms,
	}
}

// Upload 上传房间照片并完成表面分割
func (h *RoomHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Warn("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传房间照片",
			Kind:    string(service.KindInputMissing),
			Error:   err.Error(),
		})
		return
	}

	// 验证文件大小
	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
		})
		return
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型，仅支持 JPEG/PNG/WebP",
		})
		return
	}

	roomID := c.Param("room")
	if roomID == "" {
		roomID = c.PostForm("room")
	}
	if roomID == "" {
		roomID = utils.GenerateRoomID()
	}

	f, err := file.Open()
	if err != nil {
		h.fail(c, err, "读取上传文件失败")
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.Upload.MaxSize+1))
	f.Close()
	if err != nil {
		h.fail(c, err, "读取上传文件失败")
		return
	}

	utils.Logger.Info("room photo uploaded",
		zap.String("room", roomID),
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size))

	info, err := h.roomService.Upload(c.Request.Context(), roomID, data)
	if err != nil {
		h.fail(c, err, "照片处理失败")
		return
	}

	message := "处理成功"
	if !info.SurfaceDetected {
		message = "未检测到可替换的墙面或地面"
	}
	c.JSON(http.StatusOK, model.UploadResponse{
		Success: true,
		Message: message,
		Data:    info,
	})
}

// ApplyTexture 对房间应用纹理
func (h *RoomHandler) ApplyTexture(c *gin.Context) {
	var req model.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ApplyResponse{
			State:   model.StateError,
			Kind:    string(service.KindInvalidParameter),
			Message: "请求参数错误",
			Error:   err.Error(),
		})
		return
	}

	roomID := c.Param("room")
	outcome, err := h.roomService.ApplyTexture(c.Request.Context(), roomID, service.ApplyParams{
		Texture: req.Texture,
		Mode:    req.Mode,
		Tile:    model.TileSize{Width: req.TileWidth, Height: req.TileHeight},
		Repeat:  model.Repeat{X: req.RepeatX, Y: req.RepeatY},
		Tone:    req.Tone,
	})
	if err != nil {
		status, message := describeError(err)
		state := model.StateError
		if errors.Is(err, service.ErrNoSurface) {
			state = model.StateNoSurface
		}
		utils.Logger.Warn("texture application failed",
			zap.String("room", roomID),
			zap.String("texture", req.Texture),
			zap.Error(err))
		c.JSON(status, model.ApplyResponse{
			State:   state,
			Kind:    string(service.KindOf(err)),
			Message: message,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.ApplyResponse{
		State:    model.StateSuccess,
		Message:  "处理成功",
		RoomPath: outcome.RoomPath,
		Mode:     string(outcome.Mode),
	})
}

// Status 查询房间状态
func (h *RoomHandler) Status(c *gin.Context) {
	status, err := h.roomService.Status(c.Request.Context(), c.Param("room"))
	if err != nil {
		h.fail(c, err, "查询失败")
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Success: true, Data: status})
}

// Delete 删除房间状态
func (h *RoomHandler) Delete(c *gin.Context) {
	if err := h.roomService.Delete(c.Request.Context(), c.Param("room")); err != nil {
		h.fail(c, err, "删除失败")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandler) fail(c *gin.Context, err error, fallback string) {
	status, message := describeError(err)
	if status == http.StatusInternalServerError {
		message = fallback
		utils.Logger.Error(fallback, zap.Error(err))
	}
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: message,
		Kind:    string(service.KindOf(err)),
		Error:   err.Error(),
	})
}

// describeError 将错误类别映射为状态码与提示
func describeError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrQueueTimeout):
		return http.StatusServiceUnavailable, "处理队列已满，请稍后重试"
	case errors.Is(err, service.ErrInvalidParameter):
		return http.StatusBadRequest, "请求参数错误"
	case errors.Is(err, service.ErrInputMissing):
		return http.StatusConflict, "请先上传房间照片"
	case errors.Is(err, service.ErrNoSurface):
		return http.StatusUnprocessableEntity, "未检测到可替换的墙面或地面"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "纹理不存在"
	case errors.Is(err, service.ErrGeometry):
		return http.StatusUnprocessableEntity, "角点多边形无法用于透视映射"
	case errors.Is(err, service.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity, "图像尺寸不匹配"
	}
	return http.StatusInternalServerError, "纹理处理失败"
}

func (h *RoomHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
