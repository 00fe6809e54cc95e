package sendgrid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// DefaultHost is the SendGrid v3 API base URL.
const DefaultHost = "https://api.sendgrid.com"

// suppressionKinds are the endpoints queried, in order. The order matters:
// an address reported under several kinds keeps the first-seen category when
// the correlator deduplicates.
var suppressionKinds = []struct {
	endpoint string
	category string
}{
	{"bounces", "bounce"},
	{"blocks", "block"},
	{"invalid_emails", "invalid"},
}

// suppressionRecord is the shape shared by the bounce, block and
// invalid-email suppression payloads.
type suppressionRecord struct {
	Created int64  `json:"created"`
	Email   string `json:"email"`
	Reason  string `json:"reason"`
	Status  string `json:"status"`
}

// SuppressionClient queries SendGrid's suppression endpoints for delivery
// failures. It implements core.SuppressionSource.
type SuppressionClient struct {
	apiKey string
	host   string
	rest   *rest.Client
	logger *zap.Logger
}

// NewSuppressionClient creates a suppression client. host falls back to the
// public API when empty.
func NewSuppressionClient(apiKey, host string, logger *zap.Logger) *SuppressionClient {
	if host == "" {
		host = DefaultHost
	}
	return &SuppressionClient{
		apiKey: apiKey,
		host:   host,
		rest:   &rest.Client{HTTPClient: http.DefaultClient},
		logger: logger,
	}
}

// Failures queries bounces, blocks and invalid addresses, optionally limited
// to records created at or after startTime.
func (c *SuppressionClient) Failures(ctx context.Context, startTime *int64) ([]core.DeliveryFailure, error) {
	var failures []core.DeliveryFailure
	for _, kind := range suppressionKinds {
		records, err := c.query(ctx, kind.endpoint, startTime)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", kind.endpoint, err)
		}
		for _, rec := range records {
			if rec.Email == "" {
				continue
			}
			failures = append(failures, core.DeliveryFailure{
				Email:     rec.Email,
				Category:  kind.category,
				Reason:    rec.Reason,
				Timestamp: rec.Created,
			})
		}
		c.logger.Info("Queried suppressions",
			zap.String("kind", kind.endpoint),
			zap.Int("count", len(records)))
	}
	return failures, nil
}

func (c *SuppressionClient) query(ctx context.Context, endpoint string, startTime *int64) ([]suppressionRecord, error) {
	req := sg.GetRequest(c.apiKey, "/v3/suppression/"+endpoint, c.host)
	req.Method = rest.Get
	if startTime != nil {
		req.QueryParams = map[string]string{
			"start_time": strconv.FormatInt(*startTime, 10),
		}
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, resp.Body)
	}

	var records []suppressionRecord
	if err := json.Unmarshal([]byte(resp.Body), &records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}
