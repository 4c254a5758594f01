package ingest

import (
	"context"
	"errors"
	img "image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterimage/internal/files"
	"masterimage/internal/image"
	"masterimage/internal/imagetest"
)

func newIngestor(fetcher files.Fetcher) *Ingestor {
	return NewIngestor(image.NewProcessor(), fetcher, time.Second, zerolog.Nop())
}

func TestIngest_ValidBytes(t *testing.T) {
	out, err := newIngestor(nil).Ingest(context.Background(), FromBytes(imagetest.PNG(t, 30, 20), "a.png"))
	require.NoError(t, err)
	require.True(t, out.Class.OK())
	require.NotNil(t, out.Image)
	assert.Equal(t, 30, out.Image.Width)
	assert.Equal(t, 20, out.Image.Height)
	assert.Equal(t, image.FormatPNG, out.Image.Format)
	assert.Equal(t, "a.png", out.Filename)
}

func TestIngest_RotatedJPEGRecordsUprightSize(t *testing.T) {
	out, err := newIngestor(nil).Ingest(context.Background(), FromBytes(imagetest.JPEGWithOrientation(t, 40, 20, 6), "phone.jpg"))
	require.NoError(t, err)
	require.True(t, out.Class.OK())
	assert.Equal(t, 20, out.Image.Width)
	assert.Equal(t, 40, out.Image.Height)
}

func TestIngest_InvalidBytes(t *testing.T) {
	ing := newIngestor(nil)
	cases := map[string][]byte{
		"garbage":   []byte("definitely not an image"),
		"truncated": imagetest.Truncated(t),
		"empty":     nil,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := ing.Ingest(context.Background(), FromBytes(data, "bad.png"))
			require.NoError(t, err)
			assert.Equal(t, Invalid, out.Class.Status)
			assert.NotEmpty(t, out.Class.Reason)
			assert.Nil(t, out.Image)
		})
	}
}

func TestIngest_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, imagetest.JPEG(t, 12, 9), 0644))

	out, err := newIngestor(nil).Ingest(context.Background(), FromFile(path))
	require.NoError(t, err)
	require.True(t, out.Class.OK())
	assert.Equal(t, image.FormatJPG, out.Image.Format)
	assert.Equal(t, "photo.jpg", out.Filename)

	_, err = newIngestor(nil).Ingest(context.Background(), FromFile(filepath.Join(t.TempDir(), "nope.png")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngest_URL(t *testing.T) {
	valid := imagetest.PNG(t, 5, 5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/images/cat.png":
			_, _ = w.Write(valid)
		case "/images/broken.png":
			_, _ = w.Write([]byte("<html>oops</html>"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	ing := newIngestor(files.NewHTTPFetcher(srv.Client(), 0, zerolog.Nop()))
	ctx := context.Background()

	out, err := ing.Ingest(ctx, FromURL(srv.URL+"/images/cat.png"))
	require.NoError(t, err)
	require.True(t, out.Class.OK())
	assert.Equal(t, "cat.png", out.Filename)

	out, err = ing.Ingest(ctx, FromURL(srv.URL+"/images/broken.png"))
	require.NoError(t, err)
	assert.Equal(t, Invalid, out.Class.Status)

	out, err = ing.Ingest(ctx, FromURL(srv.URL+"/error"))
	require.NoError(t, err)
	assert.Equal(t, TransportFailure, out.Class.Status)
}

func TestIngest_TempSourceIsRejected(t *testing.T) {
	_, err := newIngestor(nil).Ingest(context.Background(), FromTemp(files.TempToken{Token: "x/y.png"}))
	assert.ErrorIs(t, err, ErrTempSource)
}

type failingEngine struct {
	image.Processor
	err error
}

func (f *failingEngine) Decode([]byte) (img.Image, image.Format, error) {
	return nil, "", f.err
}

func TestIngest_UnrecognizedEngineErrorIsFatal(t *testing.T) {
	engineErr := errors.New("engine: out of memory")
	ing := NewIngestor(&failingEngine{err: engineErr}, nil, time.Second, zerolog.Nop())

	_, err := ing.Ingest(context.Background(), FromBytes([]byte("anything"), "x.png"))
	assert.Same(t, engineErr, err)
}

func TestIsBadInput(t *testing.T) {
	assert.True(t, IsBadInput(img.ErrFormat))
	assert.True(t, IsBadInput(errors.New("gif: no color table")))
	assert.False(t, IsBadInput(errors.New("engine exploded")))
	assert.False(t, IsBadInput(nil))
}

func TestFilenameFromURL(t *testing.T) {
	assert.Equal(t, "a.png", FromURL("https://example.com/x/a.png?size=2").Filename)
	assert.Equal(t, "remote", FromURL("https://example.com/").Filename)
}
