// Package store owns the authoritative in-memory collection of promotions.
// It is constructed once at application start, hydrated from the durable
// snapshot cache and the remote backend, and persists every mutation back to
// the snapshot cache so a restart does not lose administrator-entered
// promotions before the next remote sync.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cowema/promotion-engine/internal/eligibility"
	"github.com/cowema/promotion-engine/internal/model"
)

// CartAbandonmentSettingKey is the system-settings key holding the discount
// value of the standing cart-abandonment promotion.
const CartAbandonmentSettingKey = "cart_abandonment_discount"

// defaultCartAbandonmentDiscount is used when the setting is absent or the
// lookup fails.
const defaultCartAbandonmentDiscount = 5.0

// PromotionRepositoryInterface defines remote persistence for promotions.
type PromotionRepositoryInterface interface {
	FetchAll(ctx context.Context) ([]model.Promotion, error)
	Upsert(ctx context.Context, p *model.Promotion) error
	Delete(ctx context.Context, id string) error
}

// UsageRecorderInterface records usage events against the remote backend.
type UsageRecorderInterface interface {
	Record(ctx context.Context, ev model.UsageEvent) error
}

// SettingsSourceInterface reads system-settings values.
type SettingsSourceInterface interface {
	Float64(ctx context.Context, key string) (float64, bool, error)
}

// SnapshotCacheInterface persists the collection and the surfaced pointer to
// the local durable cache.
type SnapshotCacheInterface interface {
	SaveCollection(ctx context.Context, promotions []model.Promotion) error
	LoadCollection(ctx context.Context) ([]model.Promotion, error)
	SaveSurfaced(ctx context.Context, p *model.Promotion) error
	LoadSurfaced(ctx context.Context) (*model.Promotion, error)
}

// Store holds the promotion collection, the valid-and-active subset and the
// single surfaced-promotion pointer. All methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	promotions []model.Promotion
	valid      []model.Promotion
	surfaced   *model.Promotion

	repo     PromotionRepositoryInterface
	usage    UsageRecorderInterface
	settings SettingsSourceInterface
	cache    SnapshotCacheInterface
	now      func() time.Time
}

// New creates a Store seeded with the built-in default promotions.
func New(repo PromotionRepositoryInterface, usage UsageRecorderInterface, settings SettingsSourceInterface, cache SnapshotCacheInterface) *Store {
	return NewWithClock(repo, usage, settings, cache, time.Now)
}

// NewWithClock creates a Store with a custom clock.
// Primarily used for testing.
func NewWithClock(repo PromotionRepositoryInterface, usage UsageRecorderInterface, settings SettingsSourceInterface, cache SnapshotCacheInterface, now func() time.Time) *Store {
	s := &Store{
		repo:     repo,
		usage:    usage,
		settings: settings,
		cache:    cache,
		now:      now,
	}
	s.promotions = defaultPromotions(defaultCartAbandonmentDiscount, now())
	s.recomputeValidLocked()
	return s
}

// defaultPromotions returns the built-in promotion set. IDs are stable so a
// merge with remote rows never duplicates a default.
func defaultPromotions(cartDiscount float64, now time.Time) []model.Promotion {
	cap2000 := 2000.0
	cap5000 := 5000.0
	return []model.Promotion{
		{
			ID:                "default-welcome10",
			Code:              "WELCOME10",
			Discount:          10,
			DiscountType:      model.DiscountPercentage,
			MinPurchaseAmount: 5000,
			MaxDiscount:       &cap2000,
			ExpiryDate:        now.AddDate(0, 0, 30),
			IsActive:          true,
			Target:            model.TargetAll,
			Description:       "10% de réduction sur votre première commande",
			UsageType:         model.UsageSingle,
			CreatedAt:         now,
		},
		{
			ID:                "default-yababoss15",
			Code:              "YABABOSS15",
			Discount:          15,
			DiscountType:      model.DiscountPercentage,
			MinPurchaseAmount: 10000,
			MaxDiscount:       &cap5000,
			ExpiryDate:        now.AddDate(0, 0, 30),
			IsActive:          true,
			Target:            model.TargetYaBaBoss,
			Description:       "15% de réduction sur la gamme Ya Ba Boss",
			UsageType:         model.UsageUnlimited,
			CreatedAt:         now,
		},
		{
			ID:                "default-retourpanier",
			Code:              "RETOURPANIER",
			Discount:          cartDiscount,
			DiscountType:      model.DiscountPercentage,
			MinPurchaseAmount: 0,
			ExpiryDate:        now.AddDate(0, 0, 30),
			IsActive:          true,
			Target:            model.TargetAll,
			Description:       "Réduction pour finaliser votre panier",
			UsageType:         model.UsageUnlimited,
			CreatedAt:         now,
		},
	}
}

// Restore hydrates the collection and the surfaced pointer from the snapshot
// cache. Best-effort: an empty or unavailable cache leaves the seeded
// defaults in place.
func (s *Store) Restore(ctx context.Context) error {
	cached, err := s.cache.LoadCollection(ctx)
	if err != nil {
		return fmt.Errorf("restore collection: %w", err)
	}
	if len(cached) > 0 {
		s.mu.Lock()
		s.promotions = ensureDefaults(cached, defaultCartAbandonmentDiscount, s.now())
		s.recomputeValidLocked()
		s.mu.Unlock()
	}

	surfaced, err := s.cache.LoadSurfaced(ctx)
	if err != nil {
		return fmt.Errorf("restore surfaced: %w", err)
	}
	if surfaced != nil {
		s.mu.Lock()
		s.surfaced = surfaced
		s.mu.Unlock()
	}
	return nil
}

// Load fetches the remote promotion rows, merges the built-in defaults (any
// default code missing remotely is appended so defaults always exist) and
// replaces the in-memory collection. On remote error the current collection
// is left unchanged and the error is returned for the caller to log.
func (s *Store) Load(ctx context.Context) error {
	remote, err := s.repo.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("load promotions: %w", err)
	}

	cartDiscount := defaultCartAbandonmentDiscount
	if v, ok, err := s.settings.Float64(ctx, CartAbandonmentSettingKey); err != nil {
		log.Warn().Err(err).Str("key", CartAbandonmentSettingKey).Msg("settings lookup failed, using default cart abandonment discount")
	} else if ok && v > 0 {
		cartDiscount = v
	}

	s.mu.Lock()
	s.promotions = ensureDefaults(remote, cartDiscount, s.now())
	s.recomputeValidLocked()
	s.mu.Unlock()

	s.saveCollectionSnapshot(ctx)
	return nil
}

// ensureDefaults appends any default promotion whose code is not already
// present (case-insensitive) in the given collection.
func ensureDefaults(promotions []model.Promotion, cartDiscount float64, now time.Time) []model.Promotion {
	merged := make([]model.Promotion, len(promotions))
	copy(merged, promotions)
	for _, def := range defaultPromotions(cartDiscount, now) {
		found := false
		for _, p := range promotions {
			if strings.EqualFold(p.Code, def.Code) {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, def)
		}
	}
	return merged
}

// GetByCode looks up a valid promotion by code, case-insensitively.
// Returns nil when no valid promotion carries the code. The scan runs in
// insertion order, so with duplicate codes the most recently created
// promotion wins.
func (s *Store) GetByCode(code string) *model.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.valid {
		if strings.EqualFold(s.valid[i].Code, code) {
			p := s.valid[i]
			return &p
		}
	}
	return nil
}

// All returns a copy of the full promotion collection, most recent first.
func (s *Store) All() []model.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Promotion, len(s.promotions))
	copy(out, s.promotions)
	return out
}

// Valid returns a copy of the active-and-unexpired subset.
func (s *Store) Valid() []model.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Promotion, len(s.valid))
	copy(out, s.valid)
	return out
}

// Surfaced returns the currently surfaced promotion, or nil.
func (s *Store) Surfaced() *model.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.surfaced == nil {
		return nil
	}
	p := *s.surfaced
	return &p
}

// Create validates the administrator input, assigns a time-ordered id and
// prepends the new promotion to the collection. No code-uniqueness check is
// performed. The remote mirror write is best-effort.
func (s *Store) Create(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error) {
	if req == nil || req.Discount == nil {
		return nil, ErrInvalidRequest
	}
	if err := validateBounds(*req.Discount, req.DiscountType, req.MinPurchaseAmount, req.ExpiryDate, s.now()); err != nil {
		return nil, err
	}

	usageType := req.UsageType
	if usageType == "" {
		usageType = model.UsageUnlimited
	}

	p := model.Promotion{
		ID:                uuid.Must(uuid.NewV7()).String(),
		Code:              req.Code,
		Discount:          *req.Discount,
		DiscountType:      req.DiscountType,
		MinPurchaseAmount: req.MinPurchaseAmount,
		MaxDiscount:       req.MaxDiscount,
		ExpiryDate:        req.ExpiryDate,
		IsActive:          req.IsActive,
		Target:            req.Target,
		Description:       req.Description,
		UsageType:         usageType,
		MaxUsesPerUser:    req.MaxUsesPerUser,
		TargetCities:      req.TargetCities,
		TargetCategories:  req.TargetCategories,
		CustomerHistory:   req.CustomerHistory,
		IsCombinable:      req.IsCombinable,
		CombinationRules:  req.CombinationRules,
		CreatedAt:         s.now(),
	}

	s.mu.Lock()
	s.promotions = append([]model.Promotion{p}, s.promotions...)
	if p.IsValid(s.now()) {
		s.valid = append([]model.Promotion{p}, s.valid...)
	}
	s.mu.Unlock()

	s.saveCollectionSnapshot(ctx)
	s.mirrorUpsert(ctx, &p)

	out := p
	return &out, nil
}

// Update merges the non-nil fields of the partial request into the matching
// promotion and recomputes the valid subset. Returns ErrPromotionNotFound
// when the id is unknown; validation failures leave the record unchanged.
func (s *Store) Update(ctx context.Context, id string, req *model.UpdatePromotionRequest) (*model.Promotion, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	s.mu.Lock()
	idx := -1
	for i := range s.promotions {
		if s.promotions[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return nil, ErrPromotionNotFound
	}

	merged := s.promotions[idx]
	applyPartial(&merged, req)

	if err := validateBounds(merged.Discount, merged.DiscountType, merged.MinPurchaseAmount, merged.ExpiryDate, s.now()); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.promotions[idx] = merged
	s.recomputeValidLocked()
	s.mu.Unlock()

	s.saveCollectionSnapshot(ctx)
	s.mirrorUpsert(ctx, &merged)

	out := merged
	return &out, nil
}

func applyPartial(p *model.Promotion, req *model.UpdatePromotionRequest) {
	if req.Code != nil {
		p.Code = *req.Code
	}
	if req.Discount != nil {
		p.Discount = *req.Discount
	}
	if req.DiscountType != nil {
		p.DiscountType = *req.DiscountType
	}
	if req.MinPurchaseAmount != nil {
		p.MinPurchaseAmount = *req.MinPurchaseAmount
	}
	if req.MaxDiscount != nil {
		p.MaxDiscount = req.MaxDiscount
	}
	if req.ExpiryDate != nil {
		p.ExpiryDate = *req.ExpiryDate
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.Target != nil {
		p.Target = *req.Target
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.UsageType != nil {
		p.UsageType = *req.UsageType
	}
	if req.MaxUsesPerUser != nil {
		p.MaxUsesPerUser = *req.MaxUsesPerUser
	}
	if req.TargetCities != nil {
		p.TargetCities = req.TargetCities
	}
	if req.TargetCategories != nil {
		p.TargetCategories = req.TargetCategories
	}
	if req.CustomerHistory != nil {
		p.CustomerHistory = req.CustomerHistory
	}
	if req.IsCombinable != nil {
		p.IsCombinable = *req.IsCombinable
	}
	if req.CombinationRules != nil {
		p.CombinationRules = req.CombinationRules
	}
}

// Remove deletes a promotion from both collections. The surfaced pointer is
// cleared when it referenced the removed promotion.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	kept := s.promotions[:0]
	for _, p := range s.promotions {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		s.mu.Unlock()
		return ErrPromotionNotFound
	}
	s.promotions = kept
	s.recomputeValidLocked()
	surfacedCleared := false
	if s.surfaced != nil && s.surfaced.ID == id {
		s.surfaced = nil
		surfacedCleared = true
	}
	s.mu.Unlock()

	s.saveCollectionSnapshot(ctx)
	if surfacedCleared {
		s.saveSurfacedSnapshot(ctx, nil)
	}
	s.mirrorDelete(ctx, id)
	return nil
}

// SetSurfaced sets the single "currently displayed" pointer. No validation is
// performed here; the selector is responsible for choosing a valid candidate.
func (s *Store) SetSurfaced(ctx context.Context, p *model.Promotion) {
	s.mu.Lock()
	if p == nil {
		s.surfaced = nil
	} else {
		cp := *p
		s.surfaced = &cp
	}
	s.mu.Unlock()
	s.saveSurfacedSnapshot(ctx, p)
}

// PruneExpired removes every promotion whose expiry date has passed from both
// collections. Idempotent.
func (s *Store) PruneExpired(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	kept := s.promotions[:0]
	removed := 0
	for _, p := range s.promotions {
		if p.ExpiryDate.After(now) {
			kept = append(kept, p)
		} else {
			removed++
		}
	}
	s.promotions = kept
	s.recomputeValidLocked()
	s.mu.Unlock()

	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("pruned expired promotions")
		s.saveCollectionSnapshot(ctx)
	}
}

// ApplyCode looks up the code, evaluates eligibility against the order and
// returns a structured result. On success a usage event is recorded against
// the remote backend best-effort; its failure never affects the result.
func (s *Store) ApplyCode(ctx context.Context, code string, order model.OrderContext) model.ApplyResult {
	p := s.GetByCode(code)
	if p == nil {
		return model.ApplyResult{Message: msgInvalidOrExpired}
	}

	if len(order.Applied) > 0 {
		if v := eligibility.EvaluateCombination(p, order.Applied, s.now()); !v.Eligible {
			return model.ApplyResult{Message: rejectionMessage(p, v.Reason)}
		}
	}

	v := eligibility.Evaluate(p, order, s.now())
	if !v.Eligible {
		return model.ApplyResult{Message: rejectionMessage(p, v.Reason)}
	}

	if s.usage != nil {
		ev := model.UsageEvent{
			PromotionID:     p.ID,
			UserID:          order.UserID,
			DiscountApplied: v.DiscountAmount,
		}
		if err := s.usage.Record(ctx, ev); err != nil {
			log.Warn().Err(err).Str("promotion_id", p.ID).Str("code", p.Code).Msg("failed to record promotion usage")
		}
	}

	return model.ApplyResult{
		Success:        true,
		DiscountAmount: v.DiscountAmount,
		Message:        fmt.Sprintf("Réduction de %.0f FCFA appliquée", v.DiscountAmount),
	}
}

const msgInvalidOrExpired = "Code promo invalide ou expiré"

// rejectionMessage maps a reason code to the shopper-facing message. The
// minimum-purchase message cites the required amount; internal reasons
// (inactive, expired, unknown) collapse to the generic invalid message.
func rejectionMessage(p *model.Promotion, reason eligibility.ReasonCode) string {
	switch reason {
	case eligibility.ReasonMinPurchase:
		return fmt.Sprintf("Montant minimum d'achat de %.0f FCFA non atteint", p.MinPurchaseAmount)
	case eligibility.ReasonTargetMismatch:
		return "Ce code est réservé aux produits Ya Ba Boss"
	case eligibility.ReasonCityNotTargeted:
		return "Ce code n'est pas disponible dans votre ville"
	case eligibility.ReasonCategoryNotTargeted:
		return "Ce code ne s'applique pas à cette catégorie de produits"
	case eligibility.ReasonHistoryNotMet:
		return "Votre historique de commandes ne permet pas d'utiliser ce code"
	case eligibility.ReasonNotCombinable:
		return "Ce code ne peut pas être combiné avec d'autres promotions"
	case eligibility.ReasonMaxCombinations:
		return "Nombre maximum de promotions atteint pour cette commande"
	case eligibility.ReasonCombinationGap:
		return "Un délai est requis entre deux promotions"
	default:
		return msgInvalidOrExpired
	}
}

// validateBounds enforces the administrator-input invariants of the creation
// form: positive discount, percentage within (0, 100], non-negative minimum
// purchase, expiry strictly in the future.
func validateBounds(discount float64, discountType model.DiscountType, minPurchase float64, expiry time.Time, now time.Time) error {
	if discount <= 0 {
		return ErrInvalidDiscount
	}
	if discountType == model.DiscountPercentage && discount > 100 {
		return ErrPercentageOutOfRange
	}
	if minPurchase < 0 {
		return ErrNegativeMinPurchase
	}
	if !expiry.After(now) {
		return ErrExpiryNotFuture
	}
	return nil
}

// recomputeValidLocked rebuilds the valid subset from the full collection.
// Caller must hold the write lock.
func (s *Store) recomputeValidLocked() {
	now := s.now()
	valid := make([]model.Promotion, 0, len(s.promotions))
	for _, p := range s.promotions {
		if p.IsValid(now) {
			valid = append(valid, p)
		}
	}
	s.valid = valid
}

// saveCollectionSnapshot persists the full collection to the durable cache.
// Failures are logged, never surfaced: promotion usability must not depend on
// cache availability.
func (s *Store) saveCollectionSnapshot(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveCollection(ctx, s.All()); err != nil {
		log.Warn().Err(err).Msg("failed to persist promotion snapshot")
	}
}

func (s *Store) saveSurfacedSnapshot(ctx context.Context, p *model.Promotion) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveSurfaced(ctx, p); err != nil {
		log.Warn().Err(err).Msg("failed to persist surfaced promotion")
	}
}

// mirrorUpsert pushes a local mutation to the remote backend, best-effort.
func (s *Store) mirrorUpsert(ctx context.Context, p *model.Promotion) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		log.Warn().Err(err).Str("promotion_id", p.ID).Msg("failed to mirror promotion to remote backend")
	}
}

func (s *Store) mirrorDelete(ctx context.Context, id string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("promotion_id", id).Msg("failed to delete promotion from remote backend")
	}
}
