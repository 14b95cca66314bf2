package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"freshcart/internal/api"
	"freshcart/internal/session"
	"freshcart/internal/storage"
)

// counts tracks requests the fake commerce API has served.
type counts struct {
	cartGet    int32
	cartPost   int32
	cartPut    int32
	cartDelete int32
	cartClear  int32
	wishGet    int32
	wishPost   int32
	wishDelete int32
}

// fakeCommerce routes the cart/wishlist endpoints to configurable bodies.
type fakeCommerce struct {
	counts counts

	cartGetBody    string
	cartGetStatus  int
	cartPostBody   string
	cartPostStatus int
	cartPutBody    string
	cartDeleteBody string
	wishGetBody    string
	wishGetDelay   time.Duration
	wishPostBody   string
	wishPostStatus int
	wishDeleteBody string
}

func (f *fakeCommerce) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/cart":
			atomic.AddInt32(&f.counts.cartGet, 1)
			if f.cartGetStatus != 0 {
				w.WriteHeader(f.cartGetStatus)
				fmt.Fprint(w, `{"statusMsg":"error","message":"cart unavailable"}`)
				return
			}
			fmt.Fprint(w, f.cartGetBody)
		case r.Method == http.MethodPost && r.URL.Path == "/cart":
			atomic.AddInt32(&f.counts.cartPost, 1)
			if f.cartPostStatus != 0 {
				w.WriteHeader(f.cartPostStatus)
				fmt.Fprint(w, `{"statusMsg":"fail","message":"add rejected"}`)
				return
			}
			fmt.Fprint(w, f.cartPostBody)
		case r.Method == http.MethodPut:
			atomic.AddInt32(&f.counts.cartPut, 1)
			fmt.Fprint(w, f.cartPutBody)
		case r.Method == http.MethodDelete && r.URL.Path == "/cart":
			atomic.AddInt32(&f.counts.cartClear, 1)
			fmt.Fprint(w, `{"message":"success"}`)
		case r.Method == http.MethodDelete && len(r.URL.Path) > len("/cart/") && r.URL.Path[:6] == "/cart/":
			atomic.AddInt32(&f.counts.cartDelete, 1)
			fmt.Fprint(w, f.cartDeleteBody)
		case r.Method == http.MethodGet && r.URL.Path == "/wishlist":
			atomic.AddInt32(&f.counts.wishGet, 1)
			if f.wishGetDelay > 0 {
				time.Sleep(f.wishGetDelay)
			}
			fmt.Fprint(w, f.wishGetBody)
		case r.Method == http.MethodPost && r.URL.Path == "/wishlist":
			atomic.AddInt32(&f.counts.wishPost, 1)
			if f.wishPostStatus != 0 {
				w.WriteHeader(f.wishPostStatus)
				fmt.Fprint(w, `{"statusMsg":"fail","message":"wishlist rejected"}`)
				return
			}
			fmt.Fprint(w, f.wishPostBody)
		case r.Method == http.MethodDelete:
			atomic.AddInt32(&f.counts.wishDelete, 1)
			fmt.Fprint(w, f.wishDeleteBody)
		default:
			http.NotFound(w, r)
		}
	})
}

const cartOneItem = `{"status":"success","numOfCartItems":1,"data":{"_id":"cart-1","cartOwner":"user-1","products":[{"_id":"line-1","count":1,"price":50,"product":{"_id":"P1","title":"Wireless Mouse","price":50}}],"totalCartPrice":50}}`

const emptyWishlist = `{"status":"success","count":0,"data":[]}`

func newStore(t *testing.T, fake *fakeCommerce) (*Store, func()) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	client := api.NewClient(api.Config{BaseURL: srv.URL})
	return New(client, nil), srv.Close
}

func TestAddToCartDuplicateGuardSkipsNetwork(t *testing.T) {
	fake := &fakeCommerce{cartGetBody: cartOneItem}
	store, done := newStore(t, fake)
	defer done()

	ctx := context.Background()
	if err := store.FetchCart(ctx); err != nil {
		t.Fatalf("fetch cart: %v", err)
	}
	before := store.Cart()

	if _, err := store.AddToCart(ctx, "P1"); !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("expected ErrAlreadyInCart, got: %v", err)
	}
	if got := atomic.LoadInt32(&fake.counts.cartPost); got != 0 {
		t.Fatalf("duplicate add must not hit the network, saw %d POSTs", got)
	}
	if !reflect.DeepEqual(before, store.Cart()) {
		t.Fatalf("duplicate add must not alter state")
	}
}

func TestAddToCartAppliesResponseThenConfirms(t *testing.T) {
	// The add response carries an unpopulated product ref (bare ID string);
	// the confirming re-fetch returns the populated cart.
	fake := &fakeCommerce{
		cartPostBody: `{"status":"success","numOfCartItems":1,"data":{"_id":"cart-1","cartOwner":"user-1","products":[{"_id":"line-1","count":1,"price":50,"product":"P1"}],"totalCartPrice":50}}`,
		cartGetBody:  cartOneItem,
	}
	store, done := newStore(t, fake)
	defer done()

	ctx := context.Background()
	cart, err := store.AddToCart(ctx, "P1")
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if got := atomic.LoadInt32(&fake.counts.cartPost); got != 1 {
		t.Fatalf("expected 1 POST, got %d", got)
	}
	if got := atomic.LoadInt32(&fake.counts.cartGet); got != 1 {
		t.Fatalf("expected exactly one confirming re-fetch, got %d", got)
	}
	if cart.ItemCount != 1 || len(cart.Items) != 1 {
		t.Fatalf("unexpected cart after add: %+v", cart)
	}
	if cart.Items[0].Product.ID != "P1" || cart.Items[0].Product.Title != "Wireless Mouse" {
		t.Fatalf("re-fetch should populate the product, got %+v", cart.Items[0].Product)
	}
	if !cart.TotalPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("total must come from the server response, got %s", cart.TotalPrice)
	}

	// Second add for the same product: failure-shaped, zero requests.
	if _, err := store.AddToCart(ctx, "P1"); !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("expected ErrAlreadyInCart, got: %v", err)
	}
	if got := atomic.LoadInt32(&fake.counts.cartPost); got != 1 {
		t.Fatalf("second add must not issue a request, saw %d POSTs", got)
	}
}

func TestAddToCartFailureLeavesStateUntouched(t *testing.T) {
	fake := &fakeCommerce{cartPostStatus: http.StatusBadRequest}
	store, done := newStore(t, fake)
	defer done()

	_, err := store.AddToCart(context.Background(), "P9")
	if err == nil {
		t.Fatalf("expected server rejection to surface")
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "add rejected" {
		t.Fatalf("raw server error must be preserved, got: %v", err)
	}
	if cart := store.Cart(); cart.ItemCount != 0 || len(cart.Items) != 0 {
		t.Fatalf("failed add must not mutate state: %+v", cart)
	}
	if got := atomic.LoadInt32(&fake.counts.cartGet); got != 0 {
		t.Fatalf("failed add must not re-fetch, saw %d GETs", got)
	}
}

func TestUpdateItemCountUsesMutationResponseOnly(t *testing.T) {
	fake := &fakeCommerce{
		cartGetBody: cartOneItem,
		cartPutBody: `{"status":"success","numOfCartItems":1,"data":{"_id":"cart-1","cartOwner":"user-1","products":[{"_id":"line-1","count":3,"price":50,"product":{"_id":"P1","title":"Wireless Mouse","price":50}}],"totalCartPrice":150}}`,
	}
	store, done := newStore(t, fake)
	defer done()

	ctx := context.Background()
	if err := store.FetchCart(ctx); err != nil {
		t.Fatalf("fetch cart: %v", err)
	}
	if err := store.UpdateItemCount(ctx, "P1", 3); err != nil {
		t.Fatalf("update item count: %v", err)
	}

	cart := store.Cart()
	if !cart.TotalPrice.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("total must be the server's 150, got %s", cart.TotalPrice)
	}
	// Distinct-line-count semantics: one line, regardless of units.
	if cart.ItemCount != 1 {
		t.Fatalf("item count must stay 1, got %d", cart.ItemCount)
	}
	if got := atomic.LoadInt32(&fake.counts.cartGet); got != 1 {
		t.Fatalf("update must not trigger an extra re-fetch, saw %d GETs", got)
	}
}

func TestRemoveItemAppliesResponseSnapshot(t *testing.T) {
	fake := &fakeCommerce{
		cartGetBody:    cartOneItem,
		cartDeleteBody: `{"status":"success","numOfCartItems":0,"data":{"_id":"cart-1","cartOwner":"user-1","products":[],"totalCartPrice":0}}`,
	}
	store, done := newStore(t, fake)
	defer done()

	ctx := context.Background()
	if err := store.FetchCart(ctx); err != nil {
		t.Fatalf("fetch cart: %v", err)
	}
	if err := store.RemoveItem(ctx, "P1"); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	cart := store.Cart()
	if len(cart.Items) != 0 || cart.ItemCount != 0 || !cart.TotalPrice.IsZero() {
		t.Fatalf("expected empty cart from response snapshot, got %+v", cart)
	}
}

func TestClearCartZeroesLocallyWithoutRefetch(t *testing.T) {
	fake := &fakeCommerce{cartGetBody: cartOneItem}
	store, done := newStore(t, fake)
	defer done()

	ctx := context.Background()
	if err := store.FetchCart(ctx); err != nil {
		t.Fatalf("fetch cart: %v", err)
	}
	gets := atomic.LoadInt32(&fake.counts.cartGet)

	if err := store.ClearCart(ctx); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	cart := store.Cart()
	if len(cart.Items) != 0 || cart.ItemCount != 0 || !cart.TotalPrice.IsZero() {
		t.Fatalf("clear must zero items, count, and total immediately: %+v", cart)
	}
	if got := atomic.LoadInt32(&fake.counts.cartGet); got != gets {
		t.Fatalf("clear must not re-fetch, GETs went %d -> %d", gets, got)
	}
	if got := atomic.LoadInt32(&fake.counts.cartClear); got != 1 {
		t.Fatalf("expected 1 clear call, got %d", got)
	}
}

func TestWishlistAddRefetchesForAuthoritativeState(t *testing.T) {
	// The mutation response only carries bare product IDs; the final state
	// must come from the follow-up read instead.
	fake := &fakeCommerce{
		wishPostBody: `{"status":"success","message":"Product added successfully to your wishlist","data":["P1"]}`,
		wishGetBody:  `{"status":"success","count":1,"data":[{"_id":"P1","title":"Wireless Mouse","price":50}]}`,
	}
	store, done := newStore(t, fake)
	defer done()

	items, err := store.AddToWishlist(context.Background(), "P1")
	if err != nil {
		t.Fatalf("add to wishlist: %v", err)
	}
	if got := atomic.LoadInt32(&fake.counts.wishGet); got != 1 {
		t.Fatalf("expected the authoritative re-fetch, saw %d GETs", got)
	}
	if len(items) != 1 || items[0].Title != "Wireless Mouse" {
		t.Fatalf("result must be the re-fetched list, got %+v", items)
	}
	wish, count := store.Wishlist()
	if count != 1 || len(wish) != 1 {
		t.Fatalf("unexpected wishlist state: %d items, count %d", len(wish), count)
	}

	// Duplicate guard: no further requests.
	if _, err := store.AddToWishlist(context.Background(), "P1"); !errors.Is(err, ErrAlreadyInWishlist) {
		t.Fatalf("expected ErrAlreadyInWishlist, got: %v", err)
	}
	if got := atomic.LoadInt32(&fake.counts.wishPost); got != 1 {
		t.Fatalf("duplicate wishlist add must not hit the network, saw %d POSTs", got)
	}
}

func TestWishlistRemoveRefetches(t *testing.T) {
	fake := &fakeCommerce{
		wishGetBody:    emptyWishlist,
		wishDeleteBody: `{"status":"success","message":"Product removed","data":[]}`,
	}
	store, done := newStore(t, fake)
	defer done()

	if err := store.RemoveFromWishlist(context.Background(), "P1"); err != nil {
		t.Fatalf("remove from wishlist: %v", err)
	}
	if got := atomic.LoadInt32(&fake.counts.wishGet); got != 1 {
		t.Fatalf("remove must re-fetch, saw %d GETs", got)
	}
	if _, count := store.Wishlist(); count != 0 {
		t.Fatalf("expected empty wishlist, count %d", count)
	}
}

func TestWishlistFailureLeavesStateUntouched(t *testing.T) {
	fake := &fakeCommerce{
		wishGetBody:    `{"status":"success","count":1,"data":[{"_id":"P1","title":"Wireless Mouse","price":50}]}`,
		wishPostStatus: http.StatusInternalServerError,
	}
	store, done := newStore(t, fake)
	defer done()

	ctx := context.Background()
	if _, err := store.FetchWishlist(ctx); err != nil {
		t.Fatalf("fetch wishlist: %v", err)
	}
	before, beforeCount := store.Wishlist()
	beforeJSON, _ := json.Marshal(before)

	if _, err := store.AddToWishlist(ctx, "P2"); err == nil {
		t.Fatalf("expected server rejection to surface")
	}
	after, afterCount := store.Wishlist()
	afterJSON, _ := json.Marshal(after)
	if string(beforeJSON) != string(afterJSON) || beforeCount != afterCount {
		t.Fatalf("failed mutation must leave wishlist byte-identical")
	}
}

func TestWishlistCountFallsBackToListLength(t *testing.T) {
	fake := &fakeCommerce{
		wishGetBody: `{"status":"success","data":[{"_id":"P1","title":"A"},{"_id":"P2","title":"B"}]}`,
	}
	store, done := newStore(t, fake)
	defer done()

	if _, err := store.FetchWishlist(context.Background()); err != nil {
		t.Fatalf("fetch wishlist: %v", err)
	}
	if _, count := store.Wishlist(); count != 2 {
		t.Fatalf("count must fall back to list length, got %d", count)
	}
}

func TestLoadFetchesSettleIndependently(t *testing.T) {
	// The cart read fails fast while the wishlist read is still in flight.
	// The cart failure must not abort the wishlist fetch; the two loads
	// settle on their own and only the error is shared.
	fake := &fakeCommerce{
		cartGetStatus: http.StatusInternalServerError,
		wishGetBody:   `{"status":"success","count":1,"data":[{"_id":"P1","title":"Wireless Mouse","price":50}]}`,
		wishGetDelay:  150 * time.Millisecond,
	}
	store, done := newStore(t, fake)
	defer done()

	err := store.Load(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected the cart failure to surface, got: %v", err)
	}
	wish, count := store.Wishlist()
	if count != 1 || len(wish) != 1 || wish[0].ID != "P1" {
		t.Fatalf("wishlist load must survive the cart failure: count=%d items=%+v", count, wish)
	}
	if cart := store.Cart(); cart.ItemCount != 0 {
		t.Fatalf("failed cart fetch must leave the cart empty: %+v", cart)
	}
}

func TestLoginEventLoadsCartAndWishlistConcurrently(t *testing.T) {
	fake := &fakeCommerce{
		cartGetBody: cartOneItem,
		wishGetBody: `{"status":"success","count":1,"data":[{"_id":"P2","title":"Keyboard","price":120}]}`,
	}
	store, done := newStore(t, fake)
	defer done()

	store.handleChange(context.Background(), session.Change{Token: "tok", LoggedIn: true})

	if got := atomic.LoadInt32(&fake.counts.cartGet); got != 1 {
		t.Fatalf("login must fetch cart once, saw %d", got)
	}
	if got := atomic.LoadInt32(&fake.counts.wishGet); got != 1 {
		t.Fatalf("login must fetch wishlist once, saw %d", got)
	}
	if cart := store.Cart(); cart.ItemCount != 1 {
		t.Fatalf("cart not loaded: %+v", cart)
	}
	if _, count := store.Wishlist(); count != 1 {
		t.Fatalf("wishlist not loaded, count %d", count)
	}
}

func TestLogoutEventClearsStateWithoutNetwork(t *testing.T) {
	fake := &fakeCommerce{
		cartGetBody: cartOneItem,
		wishGetBody: `{"status":"success","count":1,"data":[{"_id":"P1","title":"Wireless Mouse","price":50}]}`,
	}
	store, done := newStore(t, fake)
	defer done()

	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	cartGets := atomic.LoadInt32(&fake.counts.cartGet)
	wishGets := atomic.LoadInt32(&fake.counts.wishGet)

	store.handleChange(ctx, session.Change{LoggedIn: false})

	cart := store.Cart()
	if len(cart.Items) != 0 || cart.ItemCount != 0 || !cart.TotalPrice.IsZero() || cart.ID != "" {
		t.Fatalf("logout must zero all cart fields: %+v", cart)
	}
	wish, count := store.Wishlist()
	if len(wish) != 0 || count != 0 {
		t.Fatalf("logout must zero wishlist fields")
	}
	if atomic.LoadInt32(&fake.counts.cartGet) != cartGets || atomic.LoadInt32(&fake.counts.wishGet) != wishGets {
		t.Fatalf("logout must issue no network calls")
	}
}

func TestRunConsumesSessionChanges(t *testing.T) {
	fake := &fakeCommerce{
		cartGetBody: cartOneItem,
		wishGetBody: emptyWishlist,
	}
	store, done := newStore(t, fake)
	defer done()

	sess := session.New(storage.NewMemoryStore(), nil)
	changes := sess.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		store.Run(ctx, changes)
		close(stopped)
	}()

	if err := sess.SetCredential("tok"); err != nil {
		t.Fatalf("set credential: %v", err)
	}
	waitFor(t, func() bool { return store.Cart().ItemCount == 1 }, "cart load after login")

	if err := sess.Clear(); err != nil {
		t.Fatalf("clear credential: %v", err)
	}
	waitFor(t, func() bool { return store.Cart().ItemCount == 0 }, "cart clear after logout")

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on context cancel")
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
