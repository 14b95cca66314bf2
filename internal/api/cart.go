package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"freshcart/pkg/domain"
)

type cartEnvelope struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	NumOfCartItems int    `json:"numOfCartItems"`
	Data           struct {
		ID             string            `json:"_id"`
		CartOwner      string            `json:"cartOwner"`
		Products       []domain.CartItem `json:"products"`
		TotalCartPrice decimal.Decimal   `json:"totalCartPrice"`
	} `json:"data"`
}

func (e cartEnvelope) cart() domain.Cart {
	return domain.Cart{
		ID:         e.Data.ID,
		Owner:      e.Data.CartOwner,
		Items:      e.Data.Products,
		ItemCount:  e.NumOfCartItems,
		TotalPrice: e.Data.TotalCartPrice,
	}
}

// GetCart fetches the logged-in user's cart.
func (c *Client) GetCart(ctx context.Context) (domain.Cart, error) {
	var resp cartEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/cart", nil, nil, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

// AddToCart adds one unit of a product to the cart. The returned cart comes
// from the mutation response itself; its product refs may be unpopulated IDs.
func (c *Client) AddToCart(ctx context.Context, productID string) (domain.Cart, error) {
	payload := map[string]string{"productId": productID}
	var resp cartEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/cart", nil, payload, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

// UpdateCartItem sets the quantity of a cart line. No local bounds check is
// applied; quantity floors and stock ceilings are the caller's concern.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, count int) (domain.Cart, error) {
	payload := map[string]int{"count": count}
	path := fmt.Sprintf("/cart/%s", productID)
	var resp cartEnvelope
	if err := c.doJSON(ctx, http.MethodPut, path, nil, payload, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

// RemoveCartItem deletes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) (domain.Cart, error) {
	path := fmt.Sprintf("/cart/%s", productID)
	var resp cartEnvelope
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

// ClearCart deletes the whole server-side cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/cart", nil, nil, nil)
}
