package service

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestCreateMaskMarksFlatPixels(t *testing.T) {
	flatness := matFromGrid(t, [][]uint8{
		{255, 0, 129},
		{128, 200, 0},
	})
	defer flatness.Close()

	mask, err := NewFlatnessDetector(5).CreateMask(&flatness)
	if err != nil {
		t.Fatalf("CreateMask: %v", err)
	}
	defer mask.Close()

	want := []uint8{
		gcProbForeground, gcProbBackground, gcProbForeground,
		gcProbBackground, gcProbForeground, gcProbBackground,
	}
	got := mustBuffer(t, mask)
	if got.channels != 1 {
		t.Fatalf("mask has %d channels, want 1", got.channels)
	}
	for i, v := range want {
		if got.data[i] != v {
			t.Fatalf("mask[%d] = %d, want %d", i, got.data[i], v)
		}
	}
}

func TestCreateMaskEmpty(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := NewFlatnessDetector(5).CreateMask(&empty); err == nil {
		t.Fatal("empty flatness map accepted")
	}
}
