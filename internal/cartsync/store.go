// Package cartsync keeps an in-memory projection of the user's server-side
// cart and wishlist. Every mutation funnels back through a full-state server
// read (the mutation's own full-snapshot response or a forced re-fetch), so
// local state never drifts from the server at the cost of extra round trips.
package cartsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"freshcart/internal/api"
	"freshcart/internal/session"
	"freshcart/pkg/domain"
)

// ErrAlreadyInCart is the local precondition failure returned by the
// duplicate guards. No network call was made and state is untouched.
var ErrAlreadyInCart = errors.New("product already in cart")

// ErrAlreadyInWishlist is the wishlist counterpart of ErrAlreadyInCart.
var ErrAlreadyInWishlist = errors.New("product already in wishlist")

// Store is the cart & wishlist synchronization store. Snapshots are replaced
// wholesale from a single server response, never patched field-by-field.
//
// The store mirrors a single-user UI loop: the mutex only guards snapshot
// replacement (the initial load fetches cart and wishlist concurrently), it
// does not serialize overlapping mutations. Two AddToCart calls for the same
// product racing past the duplicate guard before either response lands is a
// known, accepted gap. A response arriving after logout is likewise applied
// unless the caller cancelled its context.
type Store struct {
	client *api.Client
	logger *slog.Logger

	mu            sync.Mutex
	cart          domain.Cart
	cartLoading   bool
	wishlist      []domain.Product
	wishlistCount int
}

// New constructs an empty synchronization store over the API client.
func New(client *api.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// Run consumes credential changes until ctx is done or the channel closes.
// A credential appearing loads cart and wishlist concurrently; a credential
// disappearing clears local state synchronously with no network call.
func (s *Store) Run(ctx context.Context, changes <-chan session.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			s.handleChange(ctx, change)
		}
	}
}

func (s *Store) handleChange(ctx context.Context, change session.Change) {
	if !change.LoggedIn {
		s.ClearLocalState()
		return
	}
	if err := s.Load(ctx); err != nil {
		s.logger.Warn("initial cart/wishlist load failed", "err", err)
	}
}

// Load fetches cart and wishlist concurrently. The two reads settle
// independently: no ordering guarantee between them, and a failure of one
// never cancels the other. Wait reports the first failure after both settle.
func (s *Store) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return s.FetchCart(ctx)
	})
	g.Go(func() error {
		_, err := s.FetchWishlist(ctx)
		return err
	})
	return g.Wait()
}

// Cart returns the current cart snapshot.
func (s *Store) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// CartLoading reports whether a full cart re-fetch is in flight.
func (s *Store) CartLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLoading
}

// Wishlist returns the current wishlist items and count.
func (s *Store) Wishlist() ([]domain.Product, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist, s.wishlistCount
}

// InWishlist reports whether a product is in the in-memory wishlist.
func (s *Store) InWishlist(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inWishlistLocked(productID)
}

func (s *Store) inWishlistLocked(productID string) bool {
	for _, p := range s.wishlist {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// FetchCart is the unconditional full cart re-fetch: the initial load and
// the post-mutation confirmation step. Flips the loading flag for its run.
func (s *Store) FetchCart(ctx context.Context) error {
	s.mu.Lock()
	s.cartLoading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cartLoading = false
		s.mu.Unlock()
	}()

	cart, err := s.client.GetCart(ctx)
	if err != nil {
		return err
	}
	s.replaceCart(cart)
	return nil
}

// AddToCart adds a product to the server cart. The duplicate guard fails
// fast with ErrAlreadyInCart before any network call; it only inspects the
// snapshot as of call time. On success the mutation response is applied
// first, then one full re-fetch confirms against the server. On failure
// local state is untouched and the raw error is returned.
func (s *Store) AddToCart(ctx context.Context, productID string) (domain.Cart, error) {
	s.mu.Lock()
	dup := s.cart.HasProduct(productID)
	s.mu.Unlock()
	if dup {
		return domain.Cart{}, ErrAlreadyInCart
	}

	cart, err := s.client.AddToCart(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	s.replaceCart(cart)
	if err := s.FetchCart(ctx); err != nil {
		// The add itself landed; confirmation failure keeps the mutation
		// response as the latest full snapshot.
		s.logger.Warn("post-add cart refresh failed", "productID", productID, "err", err)
	}
	return s.Cart(), nil
}

// UpdateItemCount sets a line's quantity from the mutation response alone,
// with no extra re-fetch. Bounds are the caller's responsibility.
func (s *Store) UpdateItemCount(ctx context.Context, productID string, count int) error {
	cart, err := s.client.UpdateCartItem(ctx, productID, count)
	if err != nil {
		return err
	}
	s.replaceCart(cart)
	return nil
}

// RemoveItem deletes a line and applies the response snapshot.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	cart, err := s.client.RemoveCartItem(ctx, productID)
	if err != nil {
		return err
	}
	s.replaceCart(cart)
	return nil
}

// ClearCart clears the server cart, then zeroes the local snapshot without
// waiting for a re-fetch.
func (s *Store) ClearCart(ctx context.Context) error {
	if err := s.client.ClearCart(ctx); err != nil {
		return err
	}
	s.replaceCart(domain.Cart{})
	return nil
}

// FetchWishlist is the unconditional wishlist re-fetch. The count comes from
// the server field when present, else the list length.
func (s *Store) FetchWishlist(ctx context.Context) ([]domain.Product, error) {
	wishlist, err := s.client.GetWishlist(ctx)
	if err != nil {
		return nil, err
	}
	count := wishlist.Count
	if count == 0 {
		count = len(wishlist.Items)
	}
	s.mu.Lock()
	s.wishlist = wishlist.Items
	s.wishlistCount = count
	s.mu.Unlock()
	return wishlist.Items, nil
}

// AddToWishlist adds a product, guarded like AddToCart. The mutation
// response is never trusted for the new list; the authoritative result is
// the immediate re-fetch. On failure state is untouched.
func (s *Store) AddToWishlist(ctx context.Context, productID string) ([]domain.Product, error) {
	s.mu.Lock()
	dup := s.inWishlistLocked(productID)
	s.mu.Unlock()
	if dup {
		return nil, ErrAlreadyInWishlist
	}

	if _, err := s.client.AddToWishlist(ctx, productID); err != nil {
		return nil, err
	}
	return s.FetchWishlist(ctx)
}

// RemoveFromWishlist deletes a product then re-fetches.
func (s *Store) RemoveFromWishlist(ctx context.Context, productID string) error {
	if _, err := s.client.RemoveFromWishlist(ctx, productID); err != nil {
		return err
	}
	_, err := s.FetchWishlist(ctx)
	return err
}

// ClearLocalState zeroes every field synchronously with no network call.
// The session logout handler is the only legitimate caller.
func (s *Store) ClearLocalState() {
	s.mu.Lock()
	s.cart = domain.Cart{}
	s.wishlist = nil
	s.wishlistCount = 0
	s.mu.Unlock()
}

func (s *Store) replaceCart(cart domain.Cart) {
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
}
