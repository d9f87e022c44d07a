package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hvxhost/internal/common/fsutil"
	"hvxhost/pkg/types"
)

// LoadDir scans a directory for *.so kernel images.
// ID is the full filename (including extension); Path is the absolute file path.
func LoadDir(dir string) ([]types.Image, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var images []types.Image
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".so") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, types.Image{
			ID:        name,
			Name:      strings.TrimSuffix(name, filepath.Ext(name)),
			Path:      filepath.Join(abs, name),
			SizeBytes: info.Size(),
		})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].ID < images[j].ID })
	return images, nil
}

// Find returns the image with the given ID.
func Find(images []types.Image, id string) (types.Image, bool) {
	for _, img := range images {
		if img.ID == id {
			return img, true
		}
	}
	return types.Image{}, false
}
