package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is the profile object returned by the auth endpoints.
type User struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
	Phone string   `json:"phone,omitempty"`
}

// TokenClaims is the decoded payload of a credential token. The client holds
// no verification keys, so claims are display-only and never authoritative.
type TokenClaims struct {
	UserID    string
	Name      string
	Email     string
	Role      UserRole
	ExpiresAt time.Time
}

type Category struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
}

type Subcategory struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Category string `json:"category"`
}

type Brand struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
}

// Product is passed through from the server unmodified; the client never
// recomputes or validates these fields.
type Product struct {
	ID                 string          `json:"_id"`
	Title              string          `json:"title"`
	Slug               string          `json:"slug"`
	Description        string          `json:"description,omitempty"`
	Quantity           int             `json:"quantity"`
	Sold               int             `json:"sold"`
	Price              decimal.Decimal `json:"price"`
	PriceAfterDiscount decimal.Decimal `json:"priceAfterDiscount"`
	ImageCover         string          `json:"imageCover"`
	Images             []string        `json:"images,omitempty"`
	Category           Category        `json:"category"`
	Brand              Brand           `json:"brand"`
	RatingsAverage     float64         `json:"ratingsAverage"`
	RatingsQuantity    int             `json:"ratingsQuantity"`
}

// ProductRef is the product field of a cart line. Cart reads return the
// populated product object, but the add-to-cart response carries only the
// product ID as a bare string, so both encodings must decode.
type ProductRef struct {
	Product
}

func (p *ProductRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		p.Product = Product{ID: id}
		return nil
	}
	return json.Unmarshal(data, &p.Product)
}

// CartItem is one distinct line in the cart with its own quantity.
type CartItem struct {
	LineID  string          `json:"_id"`
	Count   int             `json:"count"`
	Price   decimal.Decimal `json:"price"`
	Product ProductRef      `json:"product"`
}

// Cart is the full server-side cart projection. All four fields come from a
// single server response and are always replaced together.
type Cart struct {
	ID         string
	Owner      string
	Items      []CartItem
	ItemCount  int
	TotalPrice decimal.Decimal
}

// HasProduct reports whether the cart holds a line for the given product ID.
func (c Cart) HasProduct(productID string) bool {
	for _, item := range c.Items {
		if item.Product.ID == productID {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	Details string `json:"details"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
}

type Order struct {
	ID              string          `json:"_id"`
	PaymentMethod   string          `json:"paymentMethodType"`
	IsPaid          bool            `json:"isPaid"`
	IsDelivered     bool            `json:"isDelivered"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TotalOrderPrice decimal.Decimal `json:"totalOrderPrice"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CartItems       []CartItem      `json:"cartItems"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PageMetadata is the pagination envelope on list endpoints.
type PageMetadata struct {
	CurrentPage   int `json:"currentPage"`
	NumberOfPages int `json:"numberOfPages"`
	Limit         int `json:"limit"`
	NextPage      int `json:"nextPage,omitempty"`
}
