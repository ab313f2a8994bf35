package client

import (
	"context"
	"net/http"
	"net/url"

	"cvbuilder_backend/internal/services/dto"
)

func cvPath(id string) string {
	return "/api/cv/" + url.PathEscape(id)
}

// Register создает аккаунт и запоминает выданный токен
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// Login запоминает выданный токен
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *Client) Me(ctx context.Context) (*dto.UserResponse, error) {
	var resp struct {
		User dto.UserResponse `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*dto.ForgotPasswordResponse, error) {
	var resp dto.ForgotPasswordResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", dto.ForgotPasswordRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListCVs(ctx context.Context) (*dto.CVListResponse, error) {
	var resp dto.CVListResponse
	if err := c.do(ctx, http.MethodGet, "/api/cv", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetCV(ctx context.Context, id string) (*dto.CVResponse, error) {
	var resp dto.CVResponse
	if err := c.do(ctx, http.MethodGet, cvPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCVRaw - резюме как произвольный JSON объект (для сборки HTML без строгой схемы)
func (c *Client) GetCVRaw(ctx context.Context, id string) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.do(ctx, http.MethodGet, cvPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) CreateCV(ctx context.Context, req dto.CreateCVRequest) (*dto.CVResponse, error) {
	var resp dto.CVResponse
	if err := c.do(ctx, http.MethodPost, "/api/cv", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateCV(ctx context.Context, id string, req dto.UpdateCVRequest) (*dto.CVResponse, error) {
	var resp dto.CVResponse
	if err := c.do(ctx, http.MethodPut, cvPath(id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteCV(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, cvPath(id), nil, nil)
}

func (c *Client) AnalyzeCV(ctx context.Context, id string, req dto.AnalyzeCVRequest) (*dto.ATSAnalysisResponse, error) {
	var resp dto.ATSAnalysisResponse
	if err := c.do(ctx, http.MethodPost, cvPath(id)+"/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	var resp dto.SubscriptionResponse
	if err := c.do(ctx, http.MethodGet, "/api/subscriptions", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Subscribe(ctx context.Context, req dto.SubscribeRequest) (*dto.SubscriptionResponse, error) {
	var resp dto.SubscriptionResponse
	if err := c.do(ctx, http.MethodPost, "/api/subscriptions/subscribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CancelSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	var resp dto.SubscriptionResponse
	if err := c.do(ctx, http.MethodPost, "/api/subscriptions/cancel", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
