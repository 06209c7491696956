package service

import (
	"bytes"
	"image"
	"testing"
)

func TestEncodeMatFormats(t *testing.T) {
	m := patternBGR(t, 6, 7)
	defer m.Close()
	src := mustBuffer(t, m)

	for _, format := range []OutputFormat{FormatJPEG, FormatPNG, FormatWebP} {
		data, err := EncodeMat(m, format, 90)
		if err != nil {
			t.Fatalf("%s: EncodeMat: %v", format, err)
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s: decode: %v", format, err)
		}
		if b := img.Bounds(); b.Dx() != 7 || b.Dy() != 6 {
			t.Fatalf("%s: bounds %v, want 7x6", format, b)
		}

		// png 与 webp 均为无损
		if format == FormatJPEG {
			continue
		}
		r, g, b, _ := img.At(3, 2).RGBA()
		i := src.offset(3, 2)
		if uint8(b>>8) != src.data[i] || uint8(g>>8) != src.data[i+1] || uint8(r>>8) != src.data[i+2] {
			t.Fatalf("%s: pixel (3,2) = (%d,%d,%d), want BGR %v", format, r>>8, g>>8, b>>8, src.data[i:i+3])
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatJPEG, "JPEG": FormatJPEG, ".png": FormatPNG, "webp": FormatWebP} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("gif"); err == nil {
		t.Fatal("gif accepted")
	}
}
