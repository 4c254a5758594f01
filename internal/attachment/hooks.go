package attachment

import (
	"context"

	"masterimage/internal/storage"
)

// The record layer calls these at its four lifecycle points. They are plain
// methods; nothing registers them implicitly.

// BeforeValidate returns ValidationErrors, or nil when the image is acceptable.
func (o *Orchestrator) BeforeValidate(ctx context.Context) error {
	if errs := o.Validate(); len(errs) > 0 {
		return errs
	}
	return nil
}

func (o *Orchestrator) BeforePersist(ctx context.Context, rec *storage.Record) error {
	return o.CommitPrePersist(ctx, rec)
}

func (o *Orchestrator) AfterPersist(ctx context.Context, rec *storage.Record) error {
	return o.CommitPostPersist(ctx, rec)
}

func (o *Orchestrator) AfterDestroy(ctx context.Context, rec *storage.Record) error {
	return o.OnDelete(ctx, rec)
}
