package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// TurnstileVerifier checks Cloudflare Turnstile tokens.
type TurnstileVerifier struct {
	client *resty.Client
	url    string
}

func NewTurnstileVerifier(url string) *TurnstileVerifier {
	return &TurnstileVerifier{
		client: resty.New().SetTimeout(10 * time.Second),
		url:    url,
	}
}

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *TurnstileVerifier) Verify(ctx context.Context, secret, token, remoteIP string) (bool, error) {
	form := map[string]string{
		"secret":   secret,
		"response": token,
	}
	if remoteIP != "" {
		form["remoteip"] = remoteIP
	}

	var result turnstileResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&result).
		Post(v.url)
	if err != nil {
		return false, err
	}
	if resp.StatusCode() != 200 {
		return false, fmt.Errorf("turnstile returned status %d", resp.StatusCode())
	}
	return result.Success, nil
}
