package artifact

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

type brokenImage struct{}

func (brokenImage) ColorModel() color.Model { return color.RGBAModel }
func (brokenImage) Bounds() image.Rectangle { return image.Rectangle{} }
func (brokenImage) At(int, int) color.Color { return color.Black }

func sample() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.SetRGBA(x, y, color.RGBA{R: 0x4e, G: 0x79, B: 0xa7, A: 0xff})
		}
	}

	return img
}

func TestWriteCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets", "nested", "plot.png")

	if err := Write(sample(), path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode written file: %v", err)
	}

	if got := img.Bounds(); got != sample().Bounds() {
		t.Errorf("bounds = %v, want %v", got, sample().Bounds())
	}

	r, g, b, _ := img.At(2, 2).RGBA()
	if r>>8 != 0x4e || g>>8 != 0x79 || b>>8 != 0xa7 {
		t.Errorf("pixel = %x %x %x, want 4e 79 a7", r>>8, g>>8, b>>8)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}

		if info.Mode().Perm() != FileMode {
			t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(FileMode))
		}
	}
}

func TestWriteIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")

	if err := Write(sample(), path); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := Write(sample(), path); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("writing the same image twice produced different files")
	}
}

func TestWriteEncodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")

	err := Write(brokenImage{}, path)
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("error = %v, want ErrEncode", err)
	}

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("no file should be written on encode failure")
	}
}

func TestWriteIOError(t *testing.T) {
	dir := t.TempDir()

	// A regular file where a directory is expected.
	blocker := filepath.Join(dir, "assets")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Write(sample(), filepath.Join(blocker, "plot.png"))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("error = %v, want ErrIO", err)
	}

	if errors.Is(err, ErrEncode) {
		t.Error("io failure must not be reported as an encode error")
	}
}
