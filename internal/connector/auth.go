package connector

import (
	"errors"
	"fmt"
	"net/http"

	"tenant-scraper/internal/model"
)

var (
	ErrUnsupportedAuth = errors.New("unsupported authorization method")
	ErrMissingBaseURL  = errors.New("integration base url is not configured")
)

// applyAuth sets the credentials of cfg on req.
func applyAuth(req *http.Request, cfg model.IntegrationConfig) error {
	c := cfg.Config
	switch cfg.AuthMethod {
	case model.AuthBasic:
		req.SetBasicAuth(c.Username, c.APIToken)
	case model.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	case model.AuthAPIKey:
		req.Header.Set("Authorization", c.APIToken)
	case model.AuthOAuth:
		token := c.String("accessToken")
		if token == "" {
			token = c.APIToken
		}
		if token == "" {
			return fmt.Errorf("oauth: %w: no access token", ErrUnsupportedAuth)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAuth, cfg.AuthMethod)
	}
	return nil
}

func validate(cfg model.IntegrationConfig) error {
	if cfg.Config.BaseURL == "" {
		return ErrMissingBaseURL
	}
	switch cfg.AuthMethod {
	case model.AuthBasic, model.AuthBearer, model.AuthAPIKey, model.AuthOAuth:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAuth, cfg.AuthMethod)
	}
}
