package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"freshcart/pkg/domain"
)

// CreateCashOrder places a cash-on-delivery order against a cart. The cart
// is consumed server-side; callers must re-fetch it afterwards.
func (c *Client) CreateCashOrder(ctx context.Context, cartID string, addr domain.ShippingAddress) (domain.Order, error) {
	payload := map[string]domain.ShippingAddress{"shippingAddress": addr}
	path := fmt.Sprintf("/orders/%s", cartID)
	var resp struct {
		Data domain.Order `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Data, nil
}

// CheckoutSession starts a hosted card-payment session and returns the URL
// the user must visit to pay. returnURL is where the processor redirects after.
func (c *Client) CheckoutSession(ctx context.Context, cartID string, addr domain.ShippingAddress, returnURL string) (string, error) {
	payload := map[string]domain.ShippingAddress{"shippingAddress": addr}
	path := fmt.Sprintf("/orders/checkout-session/%s", cartID)
	query := url.Values{}
	if returnURL != "" {
		query.Set("url", returnURL)
	}
	var resp struct {
		Session struct {
			URL string `json:"url"`
		} `json:"session"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, query, payload, &resp); err != nil {
		return "", err
	}
	return resp.Session.URL, nil
}

// ListUserOrders fetches the order history for a user ID (from token claims).
func (c *Client) ListUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	path := fmt.Sprintf("/orders/user/%s", userID)
	var orders []domain.Order
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
