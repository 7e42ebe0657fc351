package ingest

import (
	"bytes"
	"image"
	"path"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
	".tiff": {},
	".tif":  {},
}

func isSupportedImage(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// pathDepth counts folder levels in a relative name; the file itself is not a
// folder, so "a/b/c.jpg" has depth 2.
func pathDepth(name string) int {
	// browser uploads may carry either separator
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean(name)
	return strings.Count(name, "/")
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
