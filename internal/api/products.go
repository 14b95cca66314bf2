package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"freshcart/pkg/domain"
)

// ProductQuery narrows a product listing. Zero values are omitted from the
// request so the server applies its own defaults.
type ProductQuery struct {
	Page       int
	Limit      int
	Sort       string
	Keyword    string
	CategoryID string
	BrandID    string
	MinPrice   int
	MaxPrice   int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.CategoryID != "" {
		v.Set("category[in]", q.CategoryID)
	}
	if q.BrandID != "" {
		v.Set("brand", q.BrandID)
	}
	if q.MinPrice > 0 {
		v.Set("price[gte]", strconv.Itoa(q.MinPrice))
	}
	if q.MaxPrice > 0 {
		v.Set("price[lte]", strconv.Itoa(q.MaxPrice))
	}
	return v
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Results  int                 `json:"results"`
	Metadata domain.PageMetadata `json:"metadata"`
	Items    []domain.Product    `json:"data"`
}

// ListProducts fetches a page of the catalog.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (ProductPage, error) {
	var page ProductPage
	if err := c.doJSON(ctx, http.MethodGet, "/products", q.values(), nil, &page); err != nil {
		return ProductPage{}, err
	}
	return page, nil
}

// GetProduct fetches a single product by ID.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var resp struct {
		Data domain.Product `json:"data"`
	}
	path := fmt.Sprintf("/products/%s", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return domain.Product{}, err
	}
	return resp.Data, nil
}

// ListBrands fetches all brands.
func (c *Client) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	var resp struct {
		Data []domain.Brand `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/brands", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetBrand fetches a single brand by ID.
func (c *Client) GetBrand(ctx context.Context, id string) (domain.Brand, error) {
	var resp struct {
		Data domain.Brand `json:"data"`
	}
	path := fmt.Sprintf("/brands/%s", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return domain.Brand{}, err
	}
	return resp.Data, nil
}

// ListCategories fetches all categories.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var resp struct {
		Data []domain.Category `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetCategory fetches a single category by ID.
func (c *Client) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var resp struct {
		Data domain.Category `json:"data"`
	}
	path := fmt.Sprintf("/categories/%s", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return domain.Category{}, err
	}
	return resp.Data, nil
}

// ListSubcategories fetches the subcategories of a category.
func (c *Client) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	var resp struct {
		Data []domain.Subcategory `json:"data"`
	}
	path := fmt.Sprintf("/categories/%s/subcategories", categoryID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
