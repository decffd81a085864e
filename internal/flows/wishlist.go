package flows

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/internal/metrics"
)

const (
	MsgWishlistAddFailed    = "Failed to add to wishlist"
	MsgWishlistRemoveFailed = "Failed to remove from wishlist"
)

// WishlistError reports a failed add or remove. It unwraps to
// ErrWishlistOperationFailed and the underlying cause.
type WishlistError struct {
	Op        string
	ProductID api.ID
	Err       error
}

func (e *WishlistError) Error() string {
	return fmt.Sprintf("wishlist %s %s: %v", e.Op, e.ProductID, e.Err)
}

func (e *WishlistError) Unwrap() []error {
	return []error{ErrWishlistOperationFailed, e.Err}
}

// UserMessage returns the text to surface for the failure.
func (e *WishlistError) UserMessage() string {
	if e.Op == "remove" {
		return MsgWishlistRemoveFailed
	}
	return MsgWishlistAddFailed
}

// WishlistEntry maps a product to the server-side wishlist entry.
type WishlistEntry struct {
	ProductID api.ID
	UID       api.ID
}

// WishlistDeps captures wishlist dependencies.
type WishlistDeps struct {
	API      WishlistAPI
	Sessions SessionReader
	Observer Observer
}

// Wishlist tracks which products are wishlisted for the current session.
// The index only changes after the backend confirmed the operation.
type Wishlist struct {
	deps WishlistDeps
	obs  Observer

	mu       sync.Mutex
	index    map[api.ID]api.ID
	order    []api.ID
	inflight map[api.ID]struct{}
}

func NewWishlist(deps WishlistDeps) (*Wishlist, error) {
	if deps.API == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("%w: wishlist requires api and sessions", ErrInvalidState)
	}
	return &Wishlist{
		deps:     deps,
		obs:      deps.Observer.normalized(),
		index:    make(map[api.ID]api.ID),
		inflight: make(map[api.ID]struct{}),
	}, nil
}

// Add wishlists the product. It is a no-op when already present.
func (w *Wishlist) Add(ctx context.Context, product api.Product) error {
	userID, err := w.currentUser()
	if err != nil {
		return err
	}
	if !w.begin(ctx, product.ID) {
		return ErrWishlistInFlight
	}
	defer w.finish(product.ID)

	if w.Contains(product.ID) {
		return nil
	}

	uid, err := w.deps.API.AddWishlist(ctx, api.AddWishlistRequest{
		UserID:    api.ID(userID),
		ProductID: product.ID,
		VariantID: product.FirstVariantID(),
	})
	if err != nil {
		w.obs.MetricInc(metrics.WishlistFailure)
		w.emit(ctx, EventWishlistAdd, userID, product.ID, err)
		return &WishlistError{Op: "add", ProductID: product.ID, Err: err}
	}

	w.mu.Lock()
	if _, ok := w.index[product.ID]; !ok {
		w.order = append(w.order, product.ID)
	}
	w.index[product.ID] = uid
	w.mu.Unlock()

	w.obs.MetricInc(metrics.WishlistAdded)
	w.emit(ctx, EventWishlistAdd, userID, product.ID, nil)
	return nil
}

// Remove deletes the product's entry. It is a no-op when absent.
func (w *Wishlist) Remove(ctx context.Context, productID api.ID) error {
	userID, err := w.currentUser()
	if err != nil {
		return err
	}
	if !w.begin(ctx, productID) {
		return ErrWishlistInFlight
	}
	defer w.finish(productID)

	uid, ok := w.EntryID(productID)
	if !ok {
		return nil
	}

	if err := w.deps.API.RemoveWishlist(ctx, uid); err != nil {
		w.obs.MetricInc(metrics.WishlistFailure)
		w.emit(ctx, EventWishlistRemove, userID, productID, err)
		return &WishlistError{Op: "remove", ProductID: productID, Err: err}
	}

	w.mu.Lock()
	delete(w.index, productID)
	for i, id := range w.order {
		if id == productID {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.mu.Unlock()

	w.obs.MetricInc(metrics.WishlistRemoved)
	w.emit(ctx, EventWishlistRemove, userID, productID, nil)
	return nil
}

// Toggle adds or removes the product and returns the resulting membership.
// On error the membership is unchanged.
func (w *Wishlist) Toggle(ctx context.Context, product api.Product) (bool, error) {
	if w.Contains(product.ID) {
		if err := w.Remove(ctx, product.ID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := w.Add(ctx, product); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Wishlist) Contains(productID api.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.index[productID]
	return ok
}

// EntryID returns the server uid for a wishlisted product.
func (w *Wishlist) EntryID(productID api.ID) (api.ID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	uid, ok := w.index[productID]
	return uid, ok
}

// Entries returns the wishlisted products in insertion order.
func (w *Wishlist) Entries() []WishlistEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WishlistEntry, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, WishlistEntry{ProductID: id, UID: w.index[id]})
	}
	return out
}

func (w *Wishlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.index)
}

// InFlight returns the product ids with a pending operation, sorted.
func (w *Wishlist) InFlight() []api.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]api.ID, 0, len(w.inflight))
	for id := range w.inflight {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset forgets all entries, e.g. after logout.
func (w *Wishlist) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.index = make(map[api.ID]api.ID)
	w.order = nil
}

func (w *Wishlist) currentUser() (string, error) {
	sess := w.deps.Sessions.Current()
	if !sess.Authenticated() || sess.User.ID == "" {
		return "", ErrNotAuthenticated
	}
	return sess.User.ID, nil
}

func (w *Wishlist) begin(ctx context.Context, productID api.ID) bool {
	w.mu.Lock()
	_, busy := w.inflight[productID]
	if !busy {
		w.inflight[productID] = struct{}{}
	}
	w.mu.Unlock()

	if busy {
		w.obs.MetricInc(metrics.WishlistInFlightRejected)
		w.emit(ctx, EventWishlistInFlight, "", productID, ErrWishlistInFlight)
	}
	return !busy
}

func (w *Wishlist) finish(productID api.ID) {
	w.mu.Lock()
	delete(w.inflight, productID)
	w.mu.Unlock()
}

func (w *Wishlist) emit(ctx context.Context, eventType, userID string, productID api.ID, err error) {
	w.obs.Emit(ctx, audit.Event{
		EventType: eventType,
		UserID:    userID,
		Success:   err == nil,
		Error:     errorText(err),
		Metadata:  map[string]string{"product_id": productID.String()},
	})
	if err != nil {
		w.obs.Logger.Debug("wishlist operation failed", "event", eventType, "product_id", productID.String(), "error", err)
	}
}
