package ingest

import "testing"

func TestIsSupportedImage(t *testing.T) {
	cases := map[string]bool{
		"photo.jpg":      true,
		"photo.JPG":      true,
		"photo.jpeg":     true,
		"photo.png":      true,
		"photo.gif":      true,
		"photo.bmp":      true,
		"photo.webp":     true,
		"photo.tiff":     true,
		"photo.tif":      true,
		"notes.txt":      false,
		"archive.zip":    false,
		"noextension":    false,
		"trailing.jpg.b": false,
	}

	for name, want := range cases {
		if got := isSupportedImage(name); got != want {
			t.Errorf("isSupportedImage(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPathDepth(t *testing.T) {
	cases := map[string]int{
		"photo.jpg":         0,
		"a/photo.jpg":       1,
		"a/b/c/photo.jpg":   3,
		"a\\b\\photo.jpg":   2,
		"a/b/c/d/e/pic.png": 5,
	}

	for name, want := range cases {
		if got := pathDepth(name); got != want {
			t.Errorf("pathDepth(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := decodeImage([]byte("not an image at all")); err == nil {
		t.Fatalf("expected decode error for garbage bytes")
	}
}
