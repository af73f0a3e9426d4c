package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type identityPayload struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	IsAdmin     bool   `json:"is_admin"`
}

func (p *identityPayload) Validate() error {
	if p.ID == 0 {
		return errors.New("identity is missing an id")
	}
	if p.Username == "" {
		return errors.New("identity is missing a username")
	}
	return nil
}

func (p *identityPayload) identity() *models.Identity {
	return &models.Identity{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		PhoneNumber: p.PhoneNumber,
		IsAdmin:     p.IsAdmin,
	}
}

type checkoutSessionPayload struct {
	URL string `json:"url"`
}

func (p *checkoutSessionPayload) Validate() error {
	if p.URL == "" {
		return errors.New("checkout session is missing a redirect url")
	}
	if _, err := url.ParseRequestURI(p.URL); err != nil {
		return fmt.Errorf("checkout session redirect url: %w", err)
	}
	return nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.Get(ctx, "/api/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := c.Get(ctx, fmt.Sprintf("/api/products/%d", id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*models.Identity, error) {
	var payload identityPayload
	if err := c.Post(ctx, "/api/login", creds, &payload); err != nil {
		return nil, err
	}
	return payload.identity(), nil
}

func (c *Client) Register(ctx context.Context, creds Credentials, email string) (*models.Identity, error) {
	body := struct {
		Credentials
		Email string `json:"email"`
	}{Credentials: creds, Email: email}

	var payload identityPayload
	if err := c.Post(ctx, "/api/register", body, &payload); err != nil {
		return nil, err
	}
	return payload.identity(), nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Post(ctx, "/api/logout", nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*models.Identity, error) {
	var payload identityPayload
	if err := c.Get(ctx, "/api/user/profile", &payload); err != nil {
		return nil, err
	}
	return payload.identity(), nil
}

func (c *Client) UpdateProfile(ctx context.Context, identity models.Identity) (*models.Identity, error) {
	var payload identityPayload
	if err := c.Put(ctx, "/api/user/profile", identity, &payload); err != nil {
		return nil, err
	}
	return payload.identity(), nil
}

func (c *Client) ChangePassword(ctx context.Context, current, updated string) error {
	body := map[string]string{
		"current_password": current,
		"new_password":     updated,
	}
	return c.Post(ctx, "/api/user/change-password", body, nil)
}

// CreateCheckoutSession sends the cart snapshot and shipping address to the
// backend and returns the hosted payment page URL to redirect to.
func (c *Client) CreateCheckoutSession(ctx context.Context, items []models.CartLine, address models.ShippingAddress) (string, error) {
	body := struct {
		CartItems       []models.CartLine      `json:"cartItems"`
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	}{CartItems: items, ShippingAddress: address}

	var payload checkoutSessionPayload
	if err := c.Post(ctx, "/api/create-checkout-session", body, &payload); err != nil {
		return "", err
	}
	return payload.URL, nil
}

func (c *Client) VerifyOrder(ctx context.Context, sessionID string, address models.ShippingAddress) (*models.Order, error) {
	body := struct {
		SessionID       string                 `json:"sessionId"`
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	}{SessionID: sessionID, ShippingAddress: address}

	var order models.Order
	if err := c.Post(ctx, "/api/order/verify", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.Get(ctx, "/api/my-orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) AdminOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.Get(ctx, "/api/admin/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
