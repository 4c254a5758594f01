// Package attachment coordinates the lifecycle of a record's master image:
// source assignment, validation, the two persistence phases, rendering and
// deletion.
//
// An Orchestrator is bound to one record and one caller. It is not safe for
// concurrent use.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"masterimage/internal/config"
	"masterimage/internal/files"
	"masterimage/internal/image"
	"masterimage/internal/ingest"
	"masterimage/internal/metrics"
	"masterimage/internal/paths"
	"masterimage/internal/render"
	"masterimage/internal/storage"
)

// Deps are the collaborators shared by every orchestrator of one record type.
type Deps struct {
	Config    *config.StorageConfig
	Store     storage.MasterStore
	Ingestor  *ingest.Ingestor
	Pipeline  *render.Pipeline
	TempCache *files.TempCache
	Assets    *files.AssetLoader
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

type Orchestrator struct {
	Deps

	state      State
	pending    *image.MasterImage
	encoded    []byte
	prepared   bool
	filename   string
	token      files.TempToken
	sourceKind ingest.Kind
	failure    ingest.Classification
}

// New returns an orchestrator for a record with no image yet.
func New(deps Deps) *Orchestrator {
	if deps.Assets == nil {
		deps.Assets = files.NewAssetLoader(deps.Config.BasePath)
	}
	return &Orchestrator{Deps: deps, state: StateEmpty}
}

// NewForRecord starts in Persisted when rec already has a stored image.
func NewForRecord(ctx context.Context, deps Deps, rec *storage.Record) (*Orchestrator, error) {
	o := New(deps)
	if !rec.HasID() && !deps.Config.Columns.Blob {
		return o, nil
	}
	exists, err := o.Store.Exists(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("check stored image: %w", err)
	}
	if exists {
		o.state = StatePersisted
	}
	return o, nil
}

func (o *Orchestrator) State() State {
	return o.state
}

// TempToken is the cached upload a form can redisplay after a failed save.
func (o *Orchestrator) TempToken() files.TempToken {
	return o.token
}

func (o *Orchestrator) Pending() *image.MasterImage {
	return o.pending
}

func (o *Orchestrator) Failure() ingest.Classification {
	return o.failure
}

func (o *Orchestrator) logFor(rec *storage.Record) *zerolog.Logger {
	l := o.Logger.With().Str("record_id", rec.ID).Logger()
	return &l
}

// SetSource ingests src. Invalid input and transport failures move to
// StateInvalid and are reported by Validate; any other failure is returned
// and the previous state is kept.
func (o *Orchestrator) SetSource(ctx context.Context, src ingest.Source) error {
	if o.state == StateDeleted {
		return ErrDeleted
	}
	prev := o.state
	o.state = StateIngesting

	out, err := o.ingest(ctx, src)
	if err != nil {
		o.state = prev
		o.Metrics.ObserveIngest("error")
		return err
	}
	o.Metrics.ObserveIngest(out.Class.Status.String())

	if !out.Class.OK() {
		o.releasePending()
		o.sourceKind = src.Kind
		o.dropToken(ctx)
		o.failure = out.Class
		o.state = StateInvalid
		o.Logger.Info().Str("source", src.Kind.String()).Str("outcome", out.Class.Status.String()).
			Str("reason", out.Class.Reason).Msg("image source rejected")
		return nil
	}

	token := src.Token
	if src.Kind != ingest.KindTemp && o.TempCache != nil {
		token, err = o.TempCache.Save(ctx, out.Data, out.Filename)
		if err != nil {
			out.Image.Release()
			o.state = prev
			return fmt.Errorf("cache upload: %w", err)
		}
	}

	// The new source is accepted only from here on; earlier failures leave
	// the previous image and token in place.
	o.releasePending()
	o.sourceKind = src.Kind
	if o.token.Token != token.Token {
		o.dropToken(ctx)
	}

	o.token = token
	o.pending = out.Image
	o.filename = out.Filename
	o.failure = ingest.Classification{}
	o.state = StateValidated
	o.Logger.Debug().Str("source", src.Kind.String()).Int("width", out.Image.Width).
		Int("height", out.Image.Height).Str("token", token.Token).Msg("image source accepted")
	return nil
}

func (o *Orchestrator) ingest(ctx context.Context, src ingest.Source) (ingest.Outcome, error) {
	if src.Kind != ingest.KindTemp {
		return o.Ingestor.Ingest(ctx, src)
	}
	if o.TempCache == nil {
		return ingest.Outcome{}, errors.New("no temp cache configured")
	}
	data, err := o.TempCache.Load(ctx, src.Token.Token)
	if err != nil {
		return ingest.Outcome{}, fmt.Errorf("rehydrate upload: %w", err)
	}
	return o.Ingestor.Decode(data, src.Token.OriginalFilename)
}

// Validate reports validation failures for the current state. It does not
// change anything.
func (o *Orchestrator) Validate() ValidationErrors {
	switch o.state {
	case StateInvalid:
		field := FieldImage
		if o.sourceKind == ingest.KindURL {
			field = FieldImageURL
		}
		return ValidationErrors{{Field: field, Message: o.Config.InvalidImageMessage}}
	case StateEmpty:
		if o.Config.RequireImage {
			return ValidationErrors{{Field: FieldImage, Message: o.Config.MissingImageMessage}}
		}
	}
	return nil
}

// CommitPrePersist runs the preprocess pipeline, converts the pending image
// to the storage format and fills the computed columns of rec. Blob-backed
// records get their blob here, before the row is written.
func (o *Orchestrator) CommitPrePersist(ctx context.Context, rec *storage.Record) error {
	if o.pending == nil || o.prepared {
		return nil
	}

	if len(o.Config.Preprocess) > 0 {
		out, err := o.Pipeline.Apply(ctx, o.pending, render.Ops(o.Config.Preprocess...))
		if err != nil {
			return fmt.Errorf("preprocess: %w", err)
		}
		if out != o.pending {
			o.pending.Release()
			o.pending = out
		}
	}

	data, err := o.Pipeline.Export(o.pending, o.Config.StorageFormat, o.Config.JPGQuality)
	if err != nil {
		return err
	}
	o.pending.Format = o.Config.StorageFormat
	o.encoded = data

	cols := o.Config.Columns
	if cols.Width {
		rec.Width = o.pending.Width
	}
	if cols.Height {
		rec.Height = o.pending.Height
	}
	if cols.Filename {
		rec.Filename = o.filename
	}
	if cols.Blob {
		err := o.Store.Write(ctx, rec, data)
		o.Metrics.ObserveStore("write", err)
		if err != nil {
			return fmt.Errorf("write blob: %w", err)
		}
	}

	o.prepared = true
	return nil
}

// CommitPostPersist writes the pending image now that rec has an id, then
// clears the temp entry. Without a pending image it does nothing.
func (o *Orchestrator) CommitPostPersist(ctx context.Context, rec *storage.Record) error {
	if o.pending == nil {
		return nil
	}
	if err := o.CommitPrePersist(ctx, rec); err != nil {
		return err
	}

	if o.Config.FilesystemBacked() {
		if !rec.HasID() {
			return fmt.Errorf("write master image: %w", paths.ErrMissingID)
		}
		err := o.Store.Write(ctx, rec, o.encoded)
		o.Metrics.ObserveStore("write", err)
		if err != nil {
			return fmt.Errorf("write master image: %w", err)
		}
	}

	o.logFor(rec).Info().Str("location", o.Store.Location(rec)).Int("bytes", len(o.encoded)).
		Msg("master image stored")

	o.dropToken(ctx)
	o.releasePending()
	o.state = StatePersisted
	return nil
}

// LoadOrDefault returns the in-memory image if one is pending, otherwise the
// stored image, otherwise the configured default image. The caller must not
// release the pending image; use Owns to tell them apart.
func (o *Orchestrator) LoadOrDefault(ctx context.Context, rec *storage.Record) (*image.MasterImage, error) {
	if !o.pending.Released() {
		return o.pending, nil
	}

	data, err := o.Store.Read(ctx, rec)
	o.Metrics.ObserveStore("read", err)
	switch {
	case err == nil:
		return o.decodeStored(data, o.Store.Location(rec))
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, paths.ErrMissingID):
	default:
		return nil, err
	}

	if o.Config.DefaultImagePath == "" {
		return nil, &MasterImageNotFoundError{RecordID: rec.ID, Path: o.Store.Location(rec)}
	}
	data, err = o.Assets.Load(o.Config.DefaultImagePath)
	if err != nil {
		return nil, err
	}
	return o.decodeStored(data, o.Config.DefaultImagePath)
}

func (o *Orchestrator) decodeStored(data []byte, location string) (*image.MasterImage, error) {
	out, err := o.Ingestor.Decode(data, location)
	if err != nil {
		return nil, err
	}
	if !out.Class.OK() {
		return nil, fmt.Errorf("stored image at %s is unreadable: %s", location, out.Class.Reason)
	}
	return out.Image, nil
}

// Owns reports whether img is the orchestrator's pending image.
func (o *Orchestrator) Owns(img *image.MasterImage) bool {
	return img != nil && img == o.pending
}

// Render produces a derived output of the master image. Buffers loaded for
// the render are released before it returns.
func (o *Orchestrator) Render(ctx context.Context, rec *storage.Record, t render.Transform, format image.Format, quality int) ([]byte, error) {
	start := time.Now()

	src, err := o.LoadOrDefault(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !o.Owns(src) {
		defer src.Release()
	}

	out, err := o.Pipeline.Apply(ctx, src, t)
	if err != nil {
		return nil, err
	}
	if out != src {
		defer out.Release()
	}

	if format == "" {
		format = o.Config.StorageFormat
	}
	data, err := o.Pipeline.Export(out, format, quality)
	if err != nil {
		return nil, err
	}
	o.Metrics.ObserveRender(time.Since(start))
	return data, nil
}

// HasImage reports whether a pending or stored image exists for rec.
func (o *Orchestrator) HasImage(ctx context.Context, rec *storage.Record) (bool, error) {
	if !o.pending.Released() {
		return true, nil
	}
	if !rec.HasID() && o.Config.FilesystemBacked() {
		return false, nil
	}
	return o.Store.Exists(ctx, rec)
}

// OnDelete removes the stored image. Blob-backed records are left to the
// record layer.
func (o *Orchestrator) OnDelete(ctx context.Context, rec *storage.Record) error {
	if rec.HasID() || !o.Config.FilesystemBacked() {
		err := o.Store.Delete(ctx, rec)
		o.Metrics.ObserveStore("delete", err)
		if err != nil {
			return fmt.Errorf("delete master image: %w", err)
		}
	}
	o.dropToken(ctx)
	o.releasePending()
	o.state = StateDeleted
	o.logFor(rec).Info().Msg("master image deleted")
	return nil
}

func (o *Orchestrator) releasePending() {
	o.pending.Release()
	o.pending = nil
	o.encoded = nil
	o.prepared = false
}

func (o *Orchestrator) dropToken(ctx context.Context) {
	if o.token.IsZero() || o.TempCache == nil {
		o.token = files.TempToken{}
		return
	}
	_ = o.TempCache.Delete(ctx, o.token.Token)
	o.token = files.TempToken{}
}
