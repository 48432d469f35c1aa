// Package digikey is a thin client for the DigiKey Product Information API
// (v4), covering product details and keyword search.
package digikey

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/procurewatch/bomrisk/internal/resilience"
)

const defaultBaseURL = "https://api.digikey.com"

// Client performs product lookups against DigiKey.
type Client interface {
	ProductDetails(ctx context.Context, productNumber string) (*Product, error)
	KeywordSearch(ctx context.Context, req KeywordSearchRequest) (*KeywordSearchResponse, error)
}

// KeywordSearchRequest is the body for POST /products/v4/search/keyword.
type KeywordSearchRequest struct {
	Keywords string `json:"Keywords"`
	Limit    int    `json:"Limit,omitempty"`
	Offset   int    `json:"Offset,omitempty"`
}

// KeywordSearchResponse is the keyword search result page.
type KeywordSearchResponse struct {
	Products      []Product `json:"Products"`
	ProductsCount int       `json:"ProductsCount"`
}

// Product is a DigiKey catalog entry with the fields the risk pipeline reads.
type Product struct {
	ManufacturerProductNumber string             `json:"ManufacturerProductNumber"`
	Manufacturer              Manufacturer       `json:"Manufacturer"`
	Description               ProductDescription `json:"Description"`
	ProductStatus             ProductStatus      `json:"ProductStatus"`
	Classifications           Classifications    `json:"Classifications"`
	Parameters                []Parameter        `json:"Parameters"`
	ProductUrl                string             `json:"ProductUrl"`
	DatasheetUrl              string             `json:"DatasheetUrl"`
	QuantityAvailable         int                `json:"QuantityAvailable"`
	UnitPrice                 float64            `json:"UnitPrice"`
}

// Manufacturer identifies the part maker.
type Manufacturer struct {
	Name string `json:"Name"`
}

// ProductDescription carries the catalog descriptions.
type ProductDescription struct {
	ProductDescription  string `json:"ProductDescription"`
	DetailedDescription string `json:"DetailedDescription"`
}

// ProductStatus is the lifecycle status as DigiKey reports it.
type ProductStatus struct {
	Status string `json:"Status"`
}

// Classifications holds the compliance classifications.
type Classifications struct {
	RohsStatus  string `json:"RohsStatus"`
	ReachStatus string `json:"ReachStatus"`
}

// Parameter is one technical attribute of a product.
type Parameter struct {
	ParameterText string `json:"ParameterText"`
	ValueText     string `json:"ValueText"`
}

type productDetailsResponse struct {
	Product Product `json:"Product"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a DigiKey API client using OAuth2 client credentials.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// token returns a cached access token, refreshing it when it is within a
// minute of expiry.
func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "digikey: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "digikey: send token request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "digikey: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("digikey: token status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.TransientFromResponse(err, resp)
		}
		return "", err
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "digikey: unmarshal token response")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *httpClient) ProductDetails(ctx context.Context, productNumber string) (*Product, error) {
	path := "/products/v4/search/" + url.PathEscape(productNumber) + "/productdetails"
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var result productDetailsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "digikey: unmarshal product details")
	}
	return &result.Product, nil
}

func (c *httpClient) KeywordSearch(ctx context.Context, req KeywordSearchRequest) (*KeywordSearchResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "digikey: marshal keyword search")
	}

	body, err := c.do(ctx, http.MethodPost, "/products/v4/search/keyword", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var result KeywordSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "digikey: unmarshal keyword search")
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "digikey: create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-DIGIKEY-Client-Id", c.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "digikey: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "digikey: read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("digikey: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.TransientFromResponse(err, resp)
		}
		return nil, err
	}

	return respBody, nil
}

// ErrNotFound is returned when DigiKey has no product for the part number.
var ErrNotFound = eris.New("digikey: product not found")
