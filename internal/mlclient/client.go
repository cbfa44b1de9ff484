// Package mlclient is the HTTP client for the external crop-failure
// prediction service. The gateway relays its responses verbatim, so calls
// return the upstream status and raw body rather than decoded structs.
package mlclient

import (
	"context"
	"fmt"
	"strconv"

	"harvest-gateway/pkg/api"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	client *resty.Client
}

func NewClient(baseURL string) *Client {
	return &Client{client: resty.New().SetBaseURL(baseURL)}
}

// Upstream is a response from the ML service. Status is the upstream HTTP
// status; Body is the unparsed response body.
type Upstream struct {
	Status int
	Body   []byte
}

func (u *Upstream) Success() bool {
	return u.Status >= 200 && u.Status < 300
}

func (c *Client) Regions(ctx context.Context) (*Upstream, error) {
	res, err := c.client.R().
		SetContext(ctx).
		Get("/regions")
	if err != nil {
		return nil, fmt.Errorf("fetching regions from ml service: %w", err)
	}
	return &Upstream{Status: res.StatusCode(), Body: res.Body()}, nil
}

func (c *Client) Predict(ctx context.Context, payload api.PredictPayload) (*Upstream, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("calling ml predict endpoint: %w", err)
	}
	return &Upstream{Status: res.StatusCode(), Body: res.Body()}, nil
}

// PredictBatch submits one prediction request per region. The service takes
// the region list as the body and use_csv as a query parameter.
func (c *Client) PredictBatch(ctx context.Context, regions []string, useCSV bool) (*Upstream, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("use_csv", strconv.FormatBool(useCSV)).
		SetBody(regions).
		Post("/predict/batch")
	if err != nil {
		return nil, fmt.Errorf("calling ml batch predict endpoint: %w", err)
	}
	return &Upstream{Status: res.StatusCode(), Body: res.Body()}, nil
}
