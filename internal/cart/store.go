// Package cart owns the single source of truth for the shopper's cart. The
// in-memory line list is an observable cell; every mutation commits locally
// first and schedules a full-snapshot write in the current persistence mode
// (local scope while anonymous, remote cart document while signed in). Write
// failures are logged, never rolled back: each write carries the whole
// current snapshot, so the next successful one reconverges.
package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/identity"
	"github.com/example/storefront/internal/localstore"
	"github.com/example/storefront/internal/recordstore"
	"github.com/example/storefront/internal/signal"
)

const (
	collection = "cart"
	storageKey = "ecommerce-cart"
)

// IdentitySource is the identity signal the store observes for transitions
// between anonymous and signed-in.
type IdentitySource interface {
	Current() *identity.User
	Subscribe(fn func(*identity.User)) func()
}

type Store struct {
	records *recordstore.Client
	catalog catalog.Reader
	local   localstore.KV

	lines   *signal.Cell[[]Line]
	loading *signal.Cell[bool]

	mu    sync.Mutex
	owner string // empty while anonymous
	docID string // remote cart document id, once discovered

	wake        chan struct{}
	flushCh     chan chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	reconciles  sync.WaitGroup
	unsubscribe func()
}

func NewStore(records *recordstore.Client, cat catalog.Reader, local localstore.KV, ident IdentitySource) *Store {
	s := &Store{
		records: records,
		catalog: cat,
		local:   local,
		lines:   signal.NewCell[[]Line](nil),
		loading: signal.NewCell(false),
		wake:    make(chan struct{}, 1),
		flushCh: make(chan chan struct{}),
		done:    make(chan struct{}),
	}

	s.lines.Set(s.loadLocal())
	go s.run()

	s.unsubscribe = ident.Subscribe(s.onIdentityChange)
	if u := ident.Current(); u != nil {
		// Restored session: adopt the identity and reconcile immediately.
		s.onIdentityChange(u)
	}
	return s
}

// Close stops the background writer. Pending state is not flushed; call
// Flush first when that matters. Close is safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		close(s.done)
	})
}

// Lines returns the current cart snapshot. Callers must not mutate it.
func (s *Store) Lines() []Line {
	return s.lines.Get()
}

// SubscribeLines registers fn for cart changes.
func (s *Store) SubscribeLines(fn func([]Line)) func() {
	return s.lines.Subscribe(fn)
}

// TotalItemCount is the sum of line quantities.
func (s *Store) TotalItemCount() int {
	total := 0
	for _, l := range s.lines.Get() {
		total += l.Quantity
	}
	return total
}

// CartValue is the sum over lines of quantity times unit price.
func (s *Store) CartValue() float64 {
	value := 0.0
	for _, l := range s.lines.Get() {
		value += float64(l.Quantity) * l.Product.Price
	}
	return value
}

func (s *Store) IsLoading() bool {
	return s.loading.Get()
}

// AddLine increments the quantity of an existing line for the product, or
// appends a new line with quantity 1.
func (s *Store) AddLine(p catalog.Product) {
	s.lines.Update(func(lines []Line) []Line {
		next := cloneLines(lines)
		for i := range next {
			if next[i].Product.ID == p.ID {
				next[i].Quantity++
				return next
			}
		}
		return append(next, Line{Product: p, Quantity: 1})
	})
	s.schedulePersist()
}

// SetQuantity replaces the line's quantity. A quantity of zero or less
// removes the line. Unknown products are a no-op.
func (s *Store) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveLine(productID)
		return
	}
	changed := false
	s.lines.Update(func(lines []Line) []Line {
		next := cloneLines(lines)
		for i := range next {
			if next[i].Product.ID == productID {
				next[i].Quantity = quantity
				changed = true
				break
			}
		}
		return next
	})
	if changed {
		s.schedulePersist()
	}
}

// RemoveLine drops the matching line; absent products are a no-op.
func (s *Store) RemoveLine(productID string) {
	changed := false
	s.lines.Update(func(lines []Line) []Line {
		next := make([]Line, 0, len(lines))
		for _, l := range lines {
			if l.Product.ID == productID {
				changed = true
				continue
			}
			next = append(next, l)
		}
		return next
	})
	if changed {
		s.schedulePersist()
	}
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear() {
	s.lines.Set(nil)
	s.schedulePersist()
}

// Flush blocks until any in-flight reconciliation has finished and the
// current snapshot has been written in the current mode. Used by tests and
// shutdown; the UI path never waits on it.
func (s *Store) Flush(ctx context.Context) error {
	s.reconciles.Wait()
	reply := make(chan struct{})
	select {
	case s.flushCh <- reply:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) schedulePersist() {
	select {
	case s.wake <- struct{}{}:
	default: // a write is already pending; it will pick up this snapshot
	}
}

// run is the background writer: it coalesces pending persist requests and
// always writes the snapshot current at write time, so the outcome is
// last-write-wins within the session.
func (s *Store) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.persistOnce(context.Background())
		case reply := <-s.flushCh:
			select {
			case <-s.wake:
			default:
			}
			s.persistOnce(context.Background())
			close(reply)
		}
	}
}

func (s *Store) persistOnce(ctx context.Context) {
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()
	lines := s.lines.Get()

	if owner == "" {
		s.saveLocal(lines)
		return
	}
	if err := s.writeRemote(ctx, owner, lines); err != nil {
		// Optimistic state stands; the next successful write reconverges.
		log.Error().Err(err).Str("owner_id", owner).Msg("cart: remote write failed")
	}
}

// writeRemote replaces the whole line array of the owner's cart document,
// creating the document if it does not exist yet.
func (s *Store) writeRemote(ctx context.Context, owner string, lines []Line) error {
	docID, err := s.ensureDocument(ctx, owner)
	if err != nil {
		return err
	}
	doc := document{OwnerID: owner, Items: toDocumentLines(lines)}
	return s.records.Put(ctx, collection, docID, doc, nil)
}

func (s *Store) ensureDocument(ctx context.Context, owner string) (string, error) {
	s.mu.Lock()
	if s.owner == owner && s.docID != "" {
		id := s.docID
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	var docs []document
	if err := s.records.List(ctx, collection, map[string]string{"ownerId": owner}, &docs); err != nil {
		return "", err
	}

	var id string
	if len(docs) > 0 {
		id = docs[0].ID
	} else {
		var created document
		if err := s.records.Create(ctx, collection, document{OwnerID: owner}, &created); err != nil {
			return "", err
		}
		id = created.ID
	}

	s.mu.Lock()
	if s.owner == owner {
		s.docID = id
	}
	s.mu.Unlock()
	return id, nil
}

func (s *Store) loadLocal() []Line {
	raw, ok := s.local.Get(storageKey)
	if !ok {
		return nil
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		log.Warn().Err(err).Msg("cart: discarding unparsable local cart")
		return nil
	}
	return lines
}

func (s *Store) saveLocal(lines []Line) {
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		log.Error().Err(err).Msg("cart: failed to encode local cart")
		return
	}
	if err := s.local.Set(storageKey, string(raw)); err != nil {
		log.Error().Err(err).Msg("cart: failed to write local cart")
	}
}

func cloneLines(lines []Line) []Line {
	next := make([]Line, len(lines))
	copy(next, lines)
	return next
}
