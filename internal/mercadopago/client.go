package mercadopago

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/paydesk/mp-webhook-service/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentInfo holds the normalized facts of one payment as of lookup
// time. A snapshot, never re-synced.
type PaymentInfo struct {
	PaymentID         string
	Status            *string
	MerchantOrderID   *string
	ExternalReference *string
	Amount            *decimal.Decimal
	RawJSON           string
}

// Client reads payment details from the MercadoPago API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg config.MercadoPagoConfig, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: cfg.Timeout()},
		log:     log,
	}
}

type orderRef struct {
	ID flexID `json:"id"`
}

type paymentResponse struct {
	Status            *string          `json:"status"`
	ExternalReference *string          `json:"external_reference"`
	TransactionAmount *decimal.Decimal `json:"transaction_amount"`
	Order             *orderRef        `json:"order"`
}

// GetPayment fetches the payment-detail endpoint. On any failure (network,
// timeout, non-200, bad body) it returns a PaymentInfo with nil fields and
// RawJSON "{}" together with the error; callers treat that as "no payment
// info available" and keep going.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	empty := &PaymentInfo{PaymentID: paymentID, RawJSON: "{}"}

	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return empty, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return empty, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, err
	}
	if resp.StatusCode != http.StatusOK {
		return empty, fmt.Errorf("payment %s lookup: status %d", paymentID, resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return empty, fmt.Errorf("payment %s lookup: decode: %w", paymentID, err)
	}

	info := &PaymentInfo{
		PaymentID:         paymentID,
		Status:            pr.Status,
		ExternalReference: pr.ExternalReference,
		Amount:            pr.TransactionAmount,
		RawJSON:           string(body),
	}
	if pr.Order != nil && pr.Order.ID != "" {
		id := string(pr.Order.ID)
		info.MerchantOrderID = &id
	}
	return info, nil
}

// flexID accepts order ids sent either as numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	*f = flexID(s)
	return nil
}
