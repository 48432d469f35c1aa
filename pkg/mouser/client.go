// Package mouser is a thin client for the Mouser Search API, used as the
// fallback source when DigiKey has no record for a part.
package mouser

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/procurewatch/bomrisk/internal/resilience"
)

const defaultBaseURL = "https://api.mouser.com/api/v1"

// Client performs part searches against Mouser.
type Client interface {
	SearchByPartNumber(ctx context.Context, partNumber string) (*SearchResult, error)
	SearchByKeyword(ctx context.Context, keyword string, records int) (*SearchResult, error)
}

// SearchResult is the Parts page of a search response.
type SearchResult struct {
	NumberOfResult int    `json:"NumberOfResult"`
	Parts          []Part `json:"Parts"`
}

// Part is a Mouser catalog entry with the fields the risk pipeline reads.
type Part struct {
	ManufacturerPartNumber string             `json:"ManufacturerPartNumber"`
	Manufacturer           string             `json:"Manufacturer"`
	Description            string             `json:"Description"`
	LifecycleStatus        string             `json:"LifecycleStatus"`
	ROHSStatus             string             `json:"ROHSStatus"`
	ProductAttributes      []ProductAttribute `json:"ProductAttributes"`
	ProductDetailUrl       string             `json:"ProductDetailUrl"`
	DataSheetUrl           string             `json:"DataSheetUrl"`
	Availability           string             `json:"Availability"`
	PriceBreaks            []PriceBreak       `json:"PriceBreaks"`
}

// ProductAttribute is one technical attribute of a part.
type ProductAttribute struct {
	AttributeName  string `json:"AttributeName"`
	AttributeValue string `json:"AttributeValue"`
}

// PriceBreak is one quantity/price tier.
type PriceBreak struct {
	Quantity int    `json:"Quantity"`
	Price    string `json:"Price"`
	Currency string `json:"Currency"`
}

type searchResponse struct {
	Errors        []apiError    `json:"Errors"`
	SearchResults *SearchResult `json:"SearchResults"`
}

type apiError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

type partNumberRequest struct {
	SearchByPartRequest struct {
		MouserPartNumber string `json:"mouserPartNumber"`
	} `json:"SearchByPartRequest"`
}

type keywordRequest struct {
	SearchByKeywordRequest struct {
		Keyword string `json:"keyword"`
		Records int    `json:"records"`
	} `json:"SearchByKeywordRequest"`
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Mouser API client. Mouser authenticates with an API
// key passed as a query parameter.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
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

func (c *httpClient) SearchByPartNumber(ctx context.Context, partNumber string) (*SearchResult, error) {
	var req partNumberRequest
	req.SearchByPartRequest.MouserPartNumber = partNumber
	return c.search(ctx, "/search/partnumber", req)
}

func (c *httpClient) SearchByKeyword(ctx context.Context, keyword string, records int) (*SearchResult, error) {
	var req keywordRequest
	req.SearchByKeywordRequest.Keyword = keyword
	req.SearchByKeywordRequest.Records = records
	return c.search(ctx, "/search/keyword", req)
}

func (c *httpClient) search(ctx context.Context, path string, payload any) (*SearchResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "mouser: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?apiKey="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "mouser: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "mouser: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "mouser: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("mouser: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.TransientFromResponse(err, resp)
		}
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "mouser: unmarshal response")
	}
	if len(result.Errors) > 0 {
		return nil, eris.Errorf("mouser: api error %s: %s", result.Errors[0].Code, result.Errors[0].Message)
	}
	if result.SearchResults == nil {
		return &SearchResult{}, nil
	}
	return result.SearchResults, nil
}
