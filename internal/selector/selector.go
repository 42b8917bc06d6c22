// Package selector decides which promotion, among all currently valid ones,
// is surfaced in storefront banners, and keeps that decision fresh as time
// passes.
package selector

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cowema/promotion-engine/internal/model"
)

// StoreInterface is the slice of the promotion store the selector needs.
type StoreInterface interface {
	PruneExpired(ctx context.Context)
	Valid() []model.Promotion
	Surfaced() *model.Promotion
	SetSurfaced(ctx context.Context, p *model.Promotion)
}

// NotifyFunc is invoked once each time the surfaced promotion changes,
// carrying the newly surfaced promotion.
type NotifyFunc func(p model.Promotion)

// Selector periodically recomputes the surfaced promotion. It must be
// started once and stopped when the owning component shuts down so the
// recurring tick does not leak.
type Selector struct {
	store    StoreInterface
	interval time.Duration
	notify   NotifyFunc
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Selector. notify may be nil.
func New(store StoreInterface, interval time.Duration, notify NotifyFunc) *Selector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Selector{
		store:    store,
		interval: interval,
		notify:   notify,
	}
}

// Start recomputes once immediately, then on every interval tick until the
// context is cancelled or Stop is called.
func (s *Selector) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.Recompute(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Recompute(ctx)
			}
		}
	}()
}

// Stop cancels the periodic recomputation and waits for the goroutine to
// exit. Idempotent; safe to call before Start.
func (s *Selector) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

// Recompute runs one selection pass: prune expired promotions, pick the best
// valid candidate and update the surfaced pointer when the winner changed.
// Exposed so store mutations can trigger an immediate refresh between ticks.
func (s *Selector) Recompute(ctx context.Context) {
	s.store.PruneExpired(ctx)

	candidates := s.store.Valid()
	current := s.store.Surfaced()

	if len(candidates) == 0 {
		if current != nil {
			s.store.SetSurfaced(ctx, nil)
			log.Debug().Msg("no valid promotions, cleared surfaced promotion")
		}
		return
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}

	// Stability preference: keep the current promotion when it is still a
	// candidate and the best is not strictly better.
	if current != nil {
		for _, c := range candidates {
			if c.ID == current.ID {
				if !better(best, c) {
					return
				}
				break
			}
		}
	}

	if current != nil && current.ID == best.ID {
		return
	}

	s.store.SetSurfaced(ctx, &best)
	log.Info().
		Str("code", best.Code).
		Float64("discount", best.Discount).
		Str("discount_type", string(best.DiscountType)).
		Msg("surfaced promotion changed")
	if s.notify != nil {
		s.notify(best)
	}
}

// better reports whether a is a strictly better offer than b: percentage
// promotions beat fixed ones, then the higher discount magnitude wins.
func better(a, b model.Promotion) bool {
	aPct := a.DiscountType == model.DiscountPercentage
	bPct := b.DiscountType == model.DiscountPercentage
	if aPct != bPct {
		return aPct
	}
	return a.Discount > b.Discount
}
