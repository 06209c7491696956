package service

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/TIANLI0/SurfaceKit/config"
	"github.com/TIANLI0/SurfaceKit/model"
)

func newTestLibrary(t *testing.T) (*TextureLibrary, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default().Texture
	cfg.LibraryDir = dir
	return NewTextureLibrary(&cfg), dir
}

func TestLibraryListFiltersAndSorts(t *testing.T) {
	lib, dir := newTestLibrary(t)
	writeTexturePNG(t, dir, "wood.png", 4, 4)
	writeTexturePNG(t, dir, "Brick.PNG", 4, 4)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"Brick.PNG", "wood.png"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
}

func TestLibraryRejectsTraversal(t *testing.T) {
	lib, dir := newTestLibrary(t)
	writeTexturePNG(t, dir, "wood.png", 4, 4)

	outside := t.TempDir()
	writeTexturePNG(t, outside, "secret.png", 4, 4)
	if err := os.Symlink(filepath.Join(outside, "secret.png"), filepath.Join(dir, "link.png")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	names := []string{
		"../wood.png",
		"../" + filepath.Base(outside) + "/secret.png",
		"sub/wood.png",
		`..\wood.png`,
		"..",
		".",
		"",
		"missing.png",
		"notes.txt",
		"link.png",
	}
	for _, name := range names {
		if _, err := lib.Resolve(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) err = %v, want NotFound", name, err)
		}
		if _, err := lib.Load(name, TextureConstraints{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%q) err = %v, want NotFound", name, err)
		}
	}

	if _, err := lib.Resolve("wood.png"); err != nil {
		t.Fatalf("Resolve(wood.png): %v", err)
	}
}

func TestLibraryLoad(t *testing.T) {
	lib, dir := newTestLibrary(t)
	writeTexturePNG(t, dir, "wood.png", 12, 8)

	raw, err := lib.Load("wood.png", TextureConstraints{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer raw.Close()
	if raw.Cols() != 12 || raw.Rows() != 8 || raw.Channels() != 3 {
		t.Fatalf("raw texture %dx%dx%d, want 12x8x3", raw.Cols(), raw.Rows(), raw.Channels())
	}

	tile, err := lib.Load("wood.png", TextureConstraints{Tile: model.TileSize{Width: 5, Height: 7}})
	if err != nil {
		t.Fatalf("Load with tile: %v", err)
	}
	defer tile.Close()
	if tile.Cols() != 5 || tile.Rows() != 7 {
		t.Fatalf("tile %dx%d, want 5x7", tile.Cols(), tile.Rows())
	}
}

func TestLibraryLoadUndecodable(t *testing.T) {
	lib, dir := newTestLibrary(t)
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Load("broken.png", TextureConstraints{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestReplicateCheckerboard(t *testing.T) {
	checker := [][]uint8{
		{255, 0, 255, 0},
		{0, 255, 0, 255},
		{255, 0, 255, 0},
		{0, 255, 0, 255},
	}
	tex := matFromGrid(t, checker)
	defer tex.Close()

	tiled, err := Replicate(tex, 5, 5)
	if err != nil {
		t.Fatalf("Replicate: %v", err)
	}
	defer tiled.Close()

	if tiled.Rows() != 20 || tiled.Cols() != 20 {
		t.Fatalf("tiled shape = (%d,%d), want (20,20)", tiled.Rows(), tiled.Cols())
	}
	buf := mustBuffer(t, tiled)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if got, want := buf.data[y*20+x], checker[y%4][x%4]; got != want {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestReplicateAndResampleValidate(t *testing.T) {
	tex := solidBGR(t, 4, 4, 1, 2, 3)
	defer tex.Close()

	if _, err := Replicate(tex, 0, 2); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Replicate(0,2) err = %v", err)
	}
	if _, err := ResampleTile(tex, model.TileSize{Width: -1, Height: 3}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("ResampleTile(-1,3) err = %v", err)
	}
}
