// Package xero talks to the Xero identity and accounting APIs: the
// authorization code flow, token refresh, the connections list and the
// Profit & Loss and General Ledger reports.
package xero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dimitrije/atlas-api/internal/config"
	"golang.org/x/oauth2"
)

// ErrUpstream marks every failure that originates at Xero or on the way to it.
var ErrUpstream = errors.New("xero request failed")

const (
	defaultExpiresIn = 1800 * time.Second

	tokenTimeout  = 30 * time.Second
	reportTimeout = 60 * time.Second
)

type Endpoints struct {
	AuthURL        string
	TokenURL       string
	ConnectionsURL string
	ReportsURL     string
}

var DefaultEndpoints = Endpoints{
	AuthURL:        "https://login.xero.com/identity/connect/authorize",
	TokenURL:       "https://identity.xero.com/connect/token",
	ConnectionsURL: "https://api.xero.com/connections",
	ReportsURL:     "https://api.xero.com/api.xro/2.0/Reports",
}

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Client struct {
	oauth      *oauth2.Config
	endpoints  Endpoints
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
		c.oauth.Endpoint.AuthURL = e.AuthURL
		c.oauth.Endpoint.TokenURL = e.TokenURL
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(cfg config.XeroConfig, opts ...Option) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   DefaultEndpoints.AuthURL,
				TokenURL:  DefaultEndpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		endpoints:  DefaultEndpoints,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthCodeURL is the consent page the user is sent to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	ctx, cancel := context.WithTimeout(c.oauthContext(ctx), tokenTimeout)
	defer cancel()

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange authorization code: %v", ErrUpstream, err)
	}
	return c.token(tok, ""), nil
}

// Refresh trades refreshToken for a new access token. Xero may rotate the
// refresh token; when it does not, the old one is kept.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	ctx, cancel := context.WithTimeout(c.oauthContext(ctx), tokenTimeout)
	defer cancel()

	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to refresh token: %v", ErrUpstream, err)
	}
	return c.token(tok, refreshToken), nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) token(tok *oauth2.Token, previousRefresh string) *Token {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = c.now().Add(defaultExpiresIn)
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &Token{AccessToken: tok.AccessToken, RefreshToken: refresh, ExpiresAt: expiresAt}
}

// Tenants returns the connections list exactly as Xero sent it.
func (c *Client) Tenants(ctx context.Context, accessToken string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	body, err := c.get(ctx, c.endpoints.ConnectionsURL, accessToken, "", nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: connections response is not JSON", ErrUpstream)
	}
	return json.RawMessage(body), nil
}

// ProfitAndLoss fetches and parses the P&L report for the period.
func (c *Client) ProfitAndLoss(ctx context.Context, accessToken, tenantID, fromDate, toDate string) (*ProfitAndLoss, error) {
	report, err := c.report(ctx, "ProfitAndLoss", accessToken, tenantID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: profit and loss report was empty", ErrUpstream)
	}
	pl, err := ParseProfitAndLoss(report)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return pl, nil
}

// GeneralLedger returns nil without error when Xero sends no report.
func (c *Client) GeneralLedger(ctx context.Context, accessToken, tenantID, fromDate, toDate string) (*GeneralLedger, error) {
	report, err := c.report(ctx, "GeneralLedger", accessToken, tenantID, fromDate, toDate)
	if err != nil || report == nil {
		return nil, err
	}
	return ParseGeneralLedger(report), nil
}

func (c *Client) report(ctx context.Context, name, accessToken, tenantID, fromDate, toDate string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("fromDate", fromDate)
	params.Set("toDate", toDate)

	body, err := c.get(ctx, c.endpoints.ReportsURL+"/"+name, accessToken, tenantID, params)
	if err != nil {
		return nil, err
	}
	report, err := firstReport(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return report, nil
}

func (c *Client) get(ctx context.Context, endpoint, accessToken, tenantID string, params url.Values) ([]byte, error) {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if tenantID != "" {
		req.Header.Set("xero-tenant-id", tenantID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstream, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}
