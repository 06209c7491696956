package service

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"gocv.io/x/gocv"
)

// OutputFormat 合成结果的编码格式
type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpg"
	FormatPNG  OutputFormat = "png"
	FormatWebP OutputFormat = "webp"
)

// ParseOutputFormat 解析输出格式
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// EncodeMat 将 BGR Mat 编码为指定格式
func EncodeMat(m gocv.Mat, format OutputFormat, quality int) ([]byte, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatWebP:
		err = nativewebp.Encode(&buf, img, nil)
	default:
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
