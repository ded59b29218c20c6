package cart

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/example/storefront/internal/identity"
)

// onIdentityChange is invoked once per identity transition edge. The
// persistence mode switches synchronously, so any mutation issued after the
// transition targets the new mode; the remote reconciliation itself runs in
// the background and checks it is still relevant before applying.
func (s *Store) onIdentityChange(u *identity.User) {
	s.mu.Lock()
	prev := s.owner
	if u == nil {
		s.owner = ""
		s.docID = ""
		s.mu.Unlock()
		if prev != "" {
			log.Info().Msg("cart: signed out, switching to local persistence")
			// The in-memory cart is retained for the session; write it to
			// the local scope so a reload sees it.
			s.schedulePersist()
		}
		return
	}
	if u.ID == prev {
		s.mu.Unlock()
		return
	}
	s.owner = u.ID
	s.docID = ""
	s.mu.Unlock()

	s.loading.Set(true)
	s.reconciles.Add(1)
	go func(owner string, fromAnonymous bool) {
		defer s.reconciles.Done()
		defer s.loading.Set(false)
		s.reconcile(context.Background(), owner, fromAnonymous)
	}(u.ID, prev == "")
}

// reconcile adopts the new owner's remote cart. A non-empty remote document
// wins outright: local lines are not merged in. An empty (or absent) remote
// document is seeded from the anonymous cart, which is then erased, but only
// on a none-to-identity transition: on a direct identity-to-identity switch
// the previous user's lines must never seed the new owner's document, so the
// empty remote is adopted as-is.
func (s *Store) reconcile(ctx context.Context, owner string, fromAnonymous bool) {
	var docs []document
	if err := s.records.List(ctx, collection, map[string]string{"ownerId": owner}, &docs); err != nil {
		// Never block the UI on a dead network: keep the local cart.
		log.Warn().Err(err).Str("owner_id", owner).Msg("cart: remote cart fetch failed, keeping local cart")
		return
	}

	var doc *document
	if len(docs) > 0 {
		doc = &docs[0]
	}

	if doc != nil && len(doc.Items) > 0 {
		lines := s.resolveLines(ctx, doc.Items)
		if !s.adoptDocument(owner, doc.ID) {
			return // a newer transition superseded this fetch
		}
		s.lines.Set(lines)
		log.Info().Str("owner_id", owner).Int("lines", len(lines)).Msg("cart: adopted remote cart")
		return
	}

	if !fromAnonymous {
		docID := ""
		if doc != nil {
			docID = doc.ID
		}
		if !s.adoptDocument(owner, docID) {
			return
		}
		s.lines.Set(nil)
		log.Info().Str("owner_id", owner).Msg("cart: adopted empty remote cart")
		return
	}

	// Remote empty: migrate the anonymous cart up, then erase it locally.
	local := s.lines.Get()
	if doc != nil && !s.adoptDocument(owner, doc.ID) {
		return
	}
	if err := s.writeRemote(ctx, owner, local); err != nil {
		log.Error().Err(err).Str("owner_id", owner).Msg("cart: failed to migrate local cart")
		return
	}
	if err := s.local.Remove(storageKey); err != nil {
		log.Warn().Err(err).Msg("cart: failed to erase local cart after migration")
	}
	log.Info().Str("owner_id", owner).Int("lines", len(local)).Msg("cart: migrated local cart to remote")
}

// resolveLines materializes document lines against the catalog. Lines whose
// product no longer resolves are dropped silently: a cart entry for a
// nonexistent product is worse than an omitted one.
func (s *Store) resolveLines(ctx context.Context, items []documentLine) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		p, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			log.Debug().Err(err).Str("product_id", item.ProductID).Msg("cart: dropping unresolvable cart line")
			continue
		}
		lines = append(lines, Line{Product: p, Quantity: item.Quantity})
	}
	return lines
}

// adoptDocument records the remote document id if the owner is still the
// current one; it reports false when the fetch has gone stale.
func (s *Store) adoptDocument(owner, docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != owner {
		return false
	}
	if docID != "" {
		s.docID = docID
	}
	return true
}
