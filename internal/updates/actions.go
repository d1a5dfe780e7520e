package updates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
)

var errEmptyFetch = errors.New("fetcher returned no descriptor")

// Accept installs a queued update and removes it from the review queue.
// Accepting a descriptor that is not queued still writes it and leaves the
// queue unchanged.
func (r *Resolver) Accept(ctx context.Context, d descriptor.Descriptor) error {
	if d.DateInstalled == nil {
		now := time.Now().UTC()
		d.DateInstalled = &now
	}
	if err := r.store.CreateOrUpdate(ctx, []descriptor.Descriptor{d}); err != nil {
		return fmt.Errorf("failed to save descriptor %s: %w", d.Key(), err)
	}

	r.decide(func(p *passDecisions) {
		p.keys[d.Key()] = struct{}{}
	}, func(s Snapshot) Snapshot {
		s.AvailableUpdates = withoutUpdate(s.AvailableUpdates, d)
		return s
	})
	slog.Info("accepted descriptor update", "id", d.ID, "revision", d.Revision)
	return nil
}

// AcceptAll accepts every queued update. It stops at the first store error;
// updates accepted before it stay accepted.
func (r *Resolver) AcceptAll(ctx context.Context) error {
	for _, d := range r.state.Snapshot().AvailableUpdates {
		if err := r.Accept(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Reject remembers d.Revision as declined for d.ID and removes d from the
// review queue. The installed content is not touched.
func (r *Resolver) Reject(ctx context.Context, d descriptor.Descriptor) error {
	revision := d.Revision
	if err := r.store.SetRejectedRevision(ctx, d.ID, &revision); err != nil {
		return fmt.Errorf("failed to reject descriptor %s: %w", d.Key(), err)
	}

	r.decide(func(p *passDecisions) {
		p.keys[d.Key()] = struct{}{}
	}, func(s Snapshot) Snapshot {
		s.AvailableUpdates = withoutUpdate(s.AvailableUpdates, d)
		return s
	})
	slog.Info("rejected descriptor update", "id", d.ID, "revision", d.Revision)
	return nil
}

// UndoReject forgets the declined revision of id. The update is offered
// again by the next pass if it still applies.
func (r *Resolver) UndoReject(ctx context.Context, id string) error {
	if err := r.store.SetRejectedRevision(ctx, id, nil); err != nil {
		return fmt.Errorf("failed to clear rejected revision of %s: %w", id, err)
	}
	slog.Info("cleared rejected revision", "id", id)
	return nil
}

// DismissReviewNotice returns to Idle without touching the queued or
// auto-applied updates.
func (r *Resolver) DismissReviewNotice() {
	r.decide(func(p *passDecisions) {
		p.dismissed = true
	}, func(s Snapshot) Snapshot {
		if s.OperationState == ReviewNecessaryNotice {
			s.OperationState = Idle
		}
		return s
	})
}

// ClearAutoUpdated forgets the silently applied updates once the user has
// seen them.
func (r *Resolver) ClearAutoUpdated() {
	r.decide(func(p *passDecisions) {
		p.autoCleared = true
	}, func(s Snapshot) Snapshot {
		s.AutoUpdated = nil
		return s
	})
}

// SetAutoUpdate turns silent major updates on or off for id.
func (r *Resolver) SetAutoUpdate(ctx context.Context, id string, enabled bool) error {
	latest, err := r.store.ListLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to list descriptors: %w", err)
	}
	d, ok := descriptor.FindByID(latest, id)
	if !ok {
		return pkerrors.NewDescriptorNotFoundError(id)
	}
	if d.AutoUpdate == enabled {
		return nil
	}

	d.AutoUpdate = enabled
	if err := r.store.CreateOrUpdate(ctx, []descriptor.Descriptor{d}); err != nil {
		return fmt.Errorf("failed to save descriptor %s: %w", d.Key(), err)
	}
	slog.Info("changed auto-update", "id", id, "enabled", enabled)
	return nil
}
