package service

import (
	"image"
	"math"
	"testing"

	"github.com/TIANLI0/SurfaceKit/config"
	"gocv.io/x/gocv"
)

// grayGradient 从上到下由 top 渐变到 bottom 的灰度三通道图
func grayGradient(t *testing.T, rows, cols int, top, bottom float64) gocv.Mat {
	t.Helper()
	buf := newPixelBuffer(rows, cols, 3)
	for y := 0; y < rows; y++ {
		v := clampByte(top + (bottom-top)*float64(y)/float64(rows-1))
		for x := 0; x < cols; x++ {
			i := buf.offset(x, y)
			buf.data[i], buf.data[i+1], buf.data[i+2] = v, v, v
		}
	}
	m, err := buf.toMat()
	if err != nil {
		t.Fatalf("toMat: %v", err)
	}
	return m
}

func toneFixture(t *testing.T) (photo, composite, mask gocv.Mat) {
	t.Helper()
	photo = grayGradient(t, 32, 24, 200, 100)
	mask = rectMask(t, 32, 24, image.Rect(4, 0, 20, 32))
	texture := solidBGR(t, 32, 24, 90, 90, 90)
	defer texture.Close()

	composite, err := NewCompositor().Composite(photo, texture, mask)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	return photo, composite, mask
}

func TestToneGlobalPreservesMeanLuminance(t *testing.T) {
	photo, composite, mask := toneFixture(t)
	defer photo.Close()
	defer composite.Close()
	defer mask.Close()

	out, err := NewToneMatcher(&config.PipelineConfig{BandHeight: 8}).Match(photo, composite, mask, ToneGlobal)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	defer out.Close()

	want, err := MeanLuminance(photo, mask)
	if err != nil {
		t.Fatalf("MeanLuminance(photo): %v", err)
	}
	got, err := MeanLuminance(out, mask)
	if err != nil {
		t.Fatalf("MeanLuminance(out): %v", err)
	}
	if math.Abs(got-want) > 2.0 {
		t.Fatalf("mean L = %.2f, want %.2f", got, want)
	}

	// 全局增益不引入纵向渐变
	o := mustBuffer(t, out)
	if d := absDiff(o.data[o.offset(10, 0)], o.data[o.offset(10, 31)]); d > 1 {
		t.Fatalf("global mode produced a gradient of %d", d)
	}
}

func TestToneKeepsPixelsOutsideMask(t *testing.T) {
	photo, composite, mask := toneFixture(t)
	defer photo.Close()
	defer composite.Close()
	defer mask.Close()

	for _, mode := range []ToneMode{ToneGlobal, ToneBands, ToneOff} {
		out, err := NewToneMatcher(&config.PipelineConfig{BandHeight: 8}).Match(photo, composite, mask, mode)
		if err != nil {
			t.Fatalf("%s: Match: %v", mode, err)
		}
		c, o, k := mustBuffer(t, composite), mustBuffer(t, out), mustBuffer(t, mask)
		out.Close()

		for y := 0; y < o.rows; y++ {
			for x := 0; x < o.cols; x++ {
				if mode != ToneOff && k.data[k.offset(x, y)] != 0 {
					continue
				}
				i := o.offset(x, y)
				if o.data[i] != c.data[i] || o.data[i+1] != c.data[i+1] || o.data[i+2] != c.data[i+2] {
					t.Fatalf("%s: pixel (%d,%d) changed", mode, x, y)
				}
			}
		}
	}
}

func TestToneBandsFollowGradient(t *testing.T) {
	photo, composite, mask := toneFixture(t)
	defer photo.Close()
	defer composite.Close()
	defer mask.Close()

	out, err := NewToneMatcher(&config.PipelineConfig{BandHeight: 8}).Match(photo, composite, mask, ToneBands)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	defer out.Close()

	o := mustBuffer(t, out)
	top, bottom := o.data[o.offset(10, 0)], o.data[o.offset(10, 31)]
	if int(top)-int(bottom) < 30 {
		t.Fatalf("band mode top=%d bottom=%d, expected a brighter top band", top, bottom)
	}
}

func TestParseToneMode(t *testing.T) {
	if m, err := ParseToneMode("", ToneBands); err != nil || m != ToneBands {
		t.Fatalf("empty = %s, %v", m, err)
	}
	if m, err := ParseToneMode("Off", ToneGlobal); err != nil || m != ToneOff {
		t.Fatalf("Off = %s, %v", m, err)
	}
	if _, err := ParseToneMode("histogram", ToneGlobal); err == nil {
		t.Fatal("unknown tone mode accepted")
	}
}
