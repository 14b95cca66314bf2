package api

import (
	"context"
	"net/http"

	"freshcart/pkg/domain"
)

type authResponse struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
	Token   string      `json:"token"`
}

// SignIn exchanges email/password for a profile and credential token.
func (c *Client) SignIn(ctx context.Context, email, password string) (domain.User, string, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signin", nil, payload, &resp); err != nil {
		return domain.User{}, "", err
	}
	return resp.User, resp.Token, nil
}

// SignUpParams carries the registration form fields.
type SignUpParams struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RePassword string `json:"rePassword"`
	Phone      string `json:"phone"`
}

// SignUp registers a new account and returns the profile and token.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (domain.User, string, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", nil, params, &resp); err != nil {
		return domain.User{}, "", err
	}
	return resp.User, resp.Token, nil
}

// VerifyToken asks the server whether the current credential is still valid.
func (c *Client) VerifyToken(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/auth/verifyToken", nil, nil, nil)
}

// ForgotPassword requests a reset code be mailed to the account.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	payload := map[string]string{"email": email}
	var resp struct {
		StatusMsg string `json:"statusMsg"`
		Message   string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/forgotPasswords", nil, payload, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// VerifyResetCode checks the mailed reset code.
func (c *Client) VerifyResetCode(ctx context.Context, code string) error {
	payload := map[string]string{"resetCode": code}
	return c.doJSON(ctx, http.MethodPost, "/auth/verifyResetCode", nil, payload, nil)
}

// ResetPassword sets a new password after code verification and returns a
// fresh credential token.
func (c *Client) ResetPassword(ctx context.Context, email, newPassword string) (string, error) {
	payload := map[string]string{"email": email, "newPassword": newPassword}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/auth/resetPassword", nil, payload, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// ChangePassword rotates the logged-in user's password. The server issues a
// new token; the old one is invalidated.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error) {
	payload := map[string]string{
		"currentPassword": currentPassword,
		"password":        newPassword,
		"rePassword":      newPassword,
	}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPut, "/users/changeMyPassword", nil, payload, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// UpdateMe updates the logged-in user's profile fields.
func (c *Client) UpdateMe(ctx context.Context, name, email, phone string) (domain.User, error) {
	payload := map[string]string{"name": name, "email": email, "phone": phone}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPut, "/users/updateMe/", nil, payload, &resp); err != nil {
		return domain.User{}, err
	}
	return resp.User, nil
}
