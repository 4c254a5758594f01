package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"masterimage/internal/attachment"
	"masterimage/internal/files"
	"masterimage/internal/image"
	"masterimage/internal/ingest"
	"masterimage/internal/records"
	"masterimage/internal/render"
	"masterimage/internal/storage"
)

var ErrBusy = errors.New("record already has an image operation in progress")

// ImageService runs image lifecycles against the records repository. At most
// `workers` decode/encode operations run at once across all callers.
type ImageService struct {
	deps     attachment.Deps
	repo     *records.Repository
	workers  int
	slots    *semaphore.Weighted
	inFlight *InFlight
	logger   zerolog.Logger
}

func NewImageService(deps attachment.Deps, repo *records.Repository, workers int, logger zerolog.Logger) *ImageService {
	if workers <= 0 {
		workers = 1
	}
	return &ImageService{
		deps:     deps,
		repo:     repo,
		workers:  workers,
		slots:    semaphore.NewWeighted(int64(workers)),
		inFlight: NewInFlight(),
		logger:   logger.With().Str("component", "image_service").Logger(),
	}
}

// AttachResult carries what a form needs after a save attempt: the record,
// any validation errors and the temp token to redisplay the upload.
type AttachResult struct {
	Record    *storage.Record
	Errors    attachment.ValidationErrors
	TempToken files.TempToken
}

// Attach sets src as the master image of rec and saves the record. A nil or
// id-less rec creates a new record.
func (s *ImageService) Attach(ctx context.Context, rec *storage.Record, src ingest.Source) (*AttachResult, error) {
	if rec == nil {
		rec = &storage.Record{}
	}
	var result *AttachResult
	err := s.withRecord(ctx, rec.ID, func() error {
		o, err := attachment.NewForRecord(ctx, s.deps, rec)
		if err != nil {
			return err
		}
		if err := o.SetSource(ctx, src); err != nil {
			return err
		}

		result = &AttachResult{Record: rec}
		err = s.repo.Save(ctx, rec, o)
		var verrs attachment.ValidationErrors
		if errors.As(err, &verrs) {
			result.Errors = verrs
			result.TempToken = o.TempToken()
			s.logger.Info().Str("record_id", rec.ID).Str("errors", verrs.Error()).Msg("image rejected")
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ImageService) Get(ctx context.Context, id string) (*storage.Record, bool, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	has, err := attachment.New(s.deps).HasImage(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	return rec, has, nil
}

func (s *ImageService) Render(ctx context.Context, id string, t render.Transform, format image.Format, quality int) ([]byte, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, rec, t, format, quality)
}

// RenderVariants produces several derived outputs of one record in parallel.
func (s *ImageService) RenderVariants(ctx context.Context, id string, variants map[string]render.Transform, format image.Format, quality int) (map[string][]byte, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = make(map[string][]byte, len(variants))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for name, t := range variants {
		g.Go(func() error {
			data, err := s.render(gctx, rec, t, format, quality)
			if err != nil {
				return fmt.Errorf("variant %s: %w", name, err)
			}
			mu.Lock()
			out[name] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ImageService) render(ctx context.Context, rec *storage.Record, t render.Transform, format image.Format, quality int) ([]byte, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.slots.Release(1)
	defer s.deps.Metrics.TrackInFlight()()

	return attachment.New(s.deps).Render(ctx, rec, t, format, quality)
}

func (s *ImageService) Delete(ctx context.Context, id string) error {
	return s.withRecord(ctx, id, func() error {
		rec, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		return s.repo.Delete(ctx, rec, attachment.New(s.deps))
	})
}

// withRecord holds the record's in-flight slot and a worker slot around fn.
// New records have no id and cannot collide.
func (s *ImageService) withRecord(ctx context.Context, id string, fn func() error) error {
	if id != "" {
		release, ok := s.inFlight.Acquire(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrBusy, id)
		}
		defer release()
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.slots.Release(1)
	defer s.deps.Metrics.TrackInFlight()()

	return fn()
}

// Location is where rec's master image is (or would be) stored.
func (s *ImageService) Location(rec *storage.Record) string {
	return s.deps.Store.Location(rec)
}
