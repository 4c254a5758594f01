package files

import (
	"fmt"
	"os"
	"path/filepath"
)

// AssetLoader reads files named relative to a configured base path, such as
// the default image shown when a record has none.
type AssetLoader struct {
	basePath string
}

func NewAssetLoader(basePath string) *AssetLoader {
	return &AssetLoader{basePath: basePath}
}

func (l *AssetLoader) Resolve(path string) string {
	if l.basePath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.basePath, path)
}

func (l *AssetLoader) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(l.Resolve(path))
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", path, err)
	}
	return data, nil
}
