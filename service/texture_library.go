package service

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/model"
	_ "github.com/ftrvxmtrx/tga"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureConstraints 纹理加载约束，Tile 为零值时返回原始尺寸
type TextureConstraints struct {
	Tile model.TileSize
}

// TextureLibrary 扁平目录下的材质纹理库
type TextureLibrary struct {
	root       string
	extensions map[string]bool
}

func NewTextureLibrary(cfg *config.TextureConfig) *TextureLibrary {
	exts := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts[strings.ToLower(ext)] = true
	}
	return &TextureLibrary{
		root:       cfg.LibraryDir,
		extensions: exts,
	}
}

// List 返回纹理库中的文件名（已排序）
func (l *TextureLibrary) List() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if l.extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Resolve 将纹理名解析为库目录内的路径，只接受纯文件名
func (l *TextureLibrary) Resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", newError(KindNotFound, nil, "texture %q not found", name)
	}
	if !l.extensions[strings.ToLower(filepath.Ext(name))] {
		return "", newError(KindNotFound, nil, "texture %q not found", name)
	}

	path := filepath.Join(l.root, name)
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", newError(KindNotFound, nil, "texture %q not found", name)
		}
		return "", newError(KindNotFound, err, "texture %q not accessible", name)
	}
	if !info.Mode().IsRegular() {
		return "", newError(KindNotFound, nil, "texture %q not found", name)
	}

	return path, nil
}

// Load 读取并解码纹理，按约束重采样
func (l *TextureLibrary) Load(name string, constraints TextureConstraints) (gocv.Mat, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return gocv.NewMat(), err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), newError(KindNotFound, err, "texture %q not readable", name)
	}

	tex, err := DecodeImage(raw)
	if err != nil {
		return gocv.NewMat(), newError(KindNotFound, err, "texture %q cannot be decoded", name)
	}

	if constraints.Tile == (model.TileSize{}) {
		return tex, nil
	}
	defer tex.Close()

	return ResampleTile(tex, constraints.Tile)
}

// DecodeImage 解码任意已注册格式的图片为 BGR Mat
func DecodeImage(raw []byte) (gocv.Mat, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return gocv.NewMat(), err
	}
	return gocv.ImageToMatRGB(img)
}

// ResampleTile 使用面积插值将纹理重采样到指定尺寸
func ResampleTile(tex gocv.Mat, size model.TileSize) (gocv.Mat, error) {
	if !size.Valid() {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil,
			"tile size must be positive, got %dx%d", size.Width, size.Height)
	}
	if tex.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "texture is empty")
	}

	resized := gocv.NewMat()
	gocv.Resize(tex, &resized, image.Point{X: size.Width, Y: size.Height}, 0, 0, gocv.InterpolationArea)
	return resized, nil
}

// Replicate 在两个方向上周期重复纹理
func Replicate(tex gocv.Mat, cols, rows int) (gocv.Mat, error) {
	if cols <= 0 || rows <= 0 {
		return gocv.NewMat(), newError(KindDimensionMismatch, nil,
			"repeat counts must be positive, got %dx%d", cols, rows)
	}
	if tex.Empty() {
		return gocv.NewMat(), newError(KindInputMissing, nil, "texture is empty")
	}

	tiled := gocv.NewMat()
	gocv.Repeat(tex, rows, cols, &tiled)
	return tiled, nil
}
