package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrTempNotFound = errors.New("temp image not found")

// TempToken names a pending upload kept across a failed validation round trip.
// Token ends in the sanitized on-disk name; OriginalFilename is the uploaded
// basename as the user sent it, for redisplay.
type TempToken struct {
	Token            string
	OriginalFilename string
}

func (t TempToken) IsZero() bool {
	return t.Token == ""
}

// TempCache keeps raw upload bytes under <root>/<uuid>/<basename>. Tokens
// never depend on the record id, which may not exist yet.
type TempCache struct {
	root   string
	logger zerolog.Logger
}

func NewTempCache(root string, logger zerolog.Logger) (*TempCache, error) {
	if root == "" {
		root = "temp"
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &TempCache{
		root:   root,
		logger: logger.With().Str("component", "temp_cache").Logger(),
	}, nil
}

func (c *TempCache) Root() string {
	return c.root
}

func (c *TempCache) Save(ctx context.Context, data []byte, originalFilename string) (TempToken, error) {
	if err := ctx.Err(); err != nil {
		return TempToken{}, err
	}

	id := uuid.NewString()
	name := SanitizeFilename(originalFilename)
	dir := filepath.Join(c.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return TempToken{}, fmt.Errorf("failed to create temp entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		_ = os.RemoveAll(dir)
		return TempToken{}, fmt.Errorf("failed to write temp image: %w", err)
	}

	token := TempToken{Token: id + "/" + name, OriginalFilename: uploadBasename(originalFilename)}
	c.logger.Debug().Str("token", token.Token).Int("bytes", len(data)).Msg("temp image saved")
	return token, nil
}

func (c *TempCache) Load(ctx context.Context, token string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := c.pathFor(token)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTempNotFound, token)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrTempNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read temp image: %w", err)
	}
	return data, nil
}

// Delete is best effort; a missing entry is not an error.
func (c *TempCache) Delete(ctx context.Context, token string) error {
	path, ok := c.pathFor(token)
	if !ok {
		return nil
	}
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		c.logger.Warn().Err(err).Str("token", token).Msg("temp image cleanup failed")
		return err
	}
	c.logger.Debug().Str("token", token).Msg("temp image deleted")
	return nil
}

// Sweep removes entries older than maxAge, i.e. forms that were never resubmitted.
func (c *TempCache) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return 0, fmt.Errorf("failed to list temp dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.IsDir() || uuid.Validate(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, entry.Name())); err != nil {
			c.logger.Warn().Err(err).Str("entry", entry.Name()).Msg("sweep failed")
			continue
		}
		removed++
	}
	if removed > 0 {
		c.logger.Info().Int("removed", removed).Msg("stale temp images swept")
	}
	return removed, nil
}

func (c *TempCache) pathFor(token string) (string, bool) {
	id, name, ok := strings.Cut(token, "/")
	if !ok || uuid.Validate(id) != nil {
		return "", false
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", false
	}
	return filepath.Join(c.root, id, name), true
}

// uploadBasename strips client directories (either separator) but keeps the
// name itself untouched.
func uploadBasename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// SanitizeFilename keeps the basename of an uploaded filename and replaces
// anything outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	name = uploadBasename(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if strings.Trim(name, ".") == "" {
		return "upload"
	}
	return name
}
