package ingest

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"

	"masterimage/internal/files"
)

type Kind int

const (
	KindBytes Kind = iota
	KindFile
	KindURL
	KindTemp
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindFile:
		return "file"
	case KindURL:
		return "url"
	case KindTemp:
		return "temp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Source is where a candidate master image comes from. Build one with the
// From* constructors.
type Source struct {
	Kind     Kind
	Data     []byte
	Filename string
	Path     string
	URL      string
	Token    files.TempToken
}

func FromBytes(data []byte, filename string) Source {
	return Source{Kind: KindBytes, Data: data, Filename: filename}
}

func FromFile(p string) Source {
	return Source{Kind: KindFile, Path: p, Filename: filepath.Base(p)}
}

// FromReader drains r; multipart uploads arrive this way.
func FromReader(r io.Reader, filename string) (Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Source{}, fmt.Errorf("read upload: %w", err)
	}
	return FromBytes(data, filename), nil
}

func FromURL(raw string) Source {
	return Source{Kind: KindURL, URL: raw, Filename: filenameFromURL(raw)}
}

// FromTemp re-hydrates an upload cached before a failed validation.
func FromTemp(token files.TempToken) Source {
	return Source{Kind: KindTemp, Token: token, Filename: token.OriginalFilename}
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "remote"
	}
	return path.Base(u.Path)
}
