// Package ingest turns a Source into a decoded master image and classifies
// failures. Only recognized bad-input signatures become Invalid; transport
// problems become TransportFailure; every other error is returned as is.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"masterimage/internal/files"
	"masterimage/internal/image"
)

var ErrTempSource = errors.New("temp sources must be resolved before ingestion")

// Outcome is the result of a non-fatal ingestion. Image is set only when
// Class is Valid.
type Outcome struct {
	Image    *image.MasterImage
	Data     []byte
	Filename string
	Class    Classification
}

type Ingestor struct {
	engine  image.Engine
	fetcher files.Fetcher
	timeout time.Duration
	logger  zerolog.Logger
}

func NewIngestor(engine image.Engine, fetcher files.Fetcher, timeout time.Duration, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		engine:  engine,
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger.With().Str("component", "ingestor").Logger(),
	}
}

func (i *Ingestor) Ingest(ctx context.Context, src Source) (Outcome, error) {
	switch src.Kind {
	case KindBytes:
		return i.Decode(src.Data, src.Filename)
	case KindFile:
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return Outcome{}, fmt.Errorf("read source file: %w", err)
		}
		return i.Decode(data, src.Filename)
	case KindURL:
		return i.fetch(ctx, src)
	case KindTemp:
		return Outcome{}, ErrTempSource
	default:
		return Outcome{}, fmt.Errorf("unknown source kind %s", src.Kind)
	}
}

func (i *Ingestor) fetch(ctx context.Context, src Source) (Outcome, error) {
	if i.fetcher == nil {
		return Outcome{}, errors.New("no fetcher configured for URL sources")
	}
	data, err := i.fetcher.Fetch(ctx, src.URL, i.timeout)
	if err != nil {
		i.logger.Info().Err(err).Str("url", src.URL).Msg("source fetch failed")
		return Outcome{
			Filename: src.Filename,
			Class:    Classification{Status: TransportFailure, Reason: err.Error()},
		}, nil
	}
	return i.Decode(data, src.Filename)
}

// Decode runs the engine over raw bytes and records width, height and format.
func (i *Ingestor) Decode(data []byte, filename string) (Outcome, error) {
	out := Outcome{Data: data, Filename: filename}
	if len(data) == 0 {
		out.Class = Classification{Status: Invalid, Reason: "empty image data"}
		return out, nil
	}

	decoded, format, err := i.engine.Decode(data)
	if err != nil {
		if IsBadInput(err) {
			i.logger.Info().Err(err).Str("filename", filename).Msg("source rejected")
			out.Class = Classification{Status: Invalid, Reason: err.Error()}
			return out, nil
		}
		return Outcome{}, err
	}

	out.Image = image.NewMasterImage(i.engine, decoded, format)
	out.Class = Classification{Status: Valid}
	return out, nil
}
