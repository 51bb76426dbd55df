// Package clients holds HTTP clients for marketplace services the publisher calls.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

// ContractAPI is the client of the marketplace contract API, which serves the
// indexed registry data shown in the marketplace.
type ContractAPI struct {
	baseURL string
	client  *http.Client
}

func NewContractAPI(baseURL string, timeout time.Duration) *ContractAPI {
	return &ContractAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type ratingRequest struct {
	Rating     float64 `json:"rating"`
	TotalRated int     `json:"total_users_rated"`
}

// UpdateServiceRating stores the aggregated rating of a service. Any non-2xx
// response is an error.
func (c *ContractAPI) UpdateServiceRating(ctx context.Context, orgID, serviceID string, rating float64, totalRated int) error {
	body, err := json.Marshal(ratingRequest{Rating: rating, TotalRated: totalRated})
	if err != nil {
		return fmt.Errorf("encoding rating: %w", err)
	}

	endpoint := fmt.Sprintf("%s/org/%s/service/%s/rating", c.baseURL, url.PathEscape(orgID), url.PathEscape(serviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.External("update service rating", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.External("update service rating",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	return nil
}
