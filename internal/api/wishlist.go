package api

import (
	"context"
	"fmt"
	"net/http"

	"freshcart/pkg/domain"
)

// Wishlist is the snapshot returned by a wishlist read.
type Wishlist struct {
	Count int              `json:"count"`
	Items []domain.Product `json:"data"`
}

// GetWishlist fetches the logged-in user's wishlist.
func (c *Client) GetWishlist(ctx context.Context) (Wishlist, error) {
	var resp Wishlist
	if err := c.doJSON(ctx, http.MethodGet, "/wishlist", nil, nil, &resp); err != nil {
		return Wishlist{}, err
	}
	return resp, nil
}

// AddToWishlist adds a product to the wishlist. The mutation response only
// carries product IDs, never full products; callers re-fetch for the real list.
func (c *Client) AddToWishlist(ctx context.Context, productID string) ([]string, error) {
	payload := map[string]string{"productId": productID}
	var resp struct {
		Message string   `json:"message"`
		Data    []string `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/wishlist", nil, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// RemoveFromWishlist removes a product from the wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) ([]string, error) {
	path := fmt.Sprintf("/wishlist/%s", productID)
	var resp struct {
		Message string   `json:"message"`
		Data    []string `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
