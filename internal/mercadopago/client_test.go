package mercadopago

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paydesk/mp-webhook-service/internal/config"
	"github.com/paydesk/mp-webhook-service/internal/logger"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	log, err := logger.NewLogger()
	assert.NoError(t, err)
	return NewClient(config.MercadoPagoConfig{
		BaseURL:        baseURL,
		Token:          "test-token",
		TimeoutSeconds: 2,
	}, log)
}

func TestGetPayment_OK(t *testing.T) {
	body := `{"status":"approved","external_reference":"ref-1","transaction_amount":150.5,"order":{"id":999}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/12345", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv.URL).GetPayment(context.Background(), "12345")
	assert.NoError(t, err)
	assert.Equal(t, "12345", info.PaymentID)
	assert.Equal(t, "approved", *info.Status)
	assert.Equal(t, "ref-1", *info.ExternalReference)
	assert.Equal(t, "999", *info.MerchantOrderID)
	assert.Equal(t, "150.5", info.Amount.String())
	assert.JSONEq(t, body, info.RawJSON)
}

func TestGetPayment_NoOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending","external_reference":null}`))
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv.URL).GetPayment(context.Background(), "1")
	assert.NoError(t, err)
	assert.Equal(t, "pending", *info.Status)
	assert.Nil(t, info.ExternalReference)
	assert.Nil(t, info.MerchantOrderID)
	assert.Nil(t, info.Amount)
}

func TestGetPayment_SoftFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv.URL).GetPayment(context.Background(), "missing")
	assert.Error(t, err)
	assert.Equal(t, "missing", info.PaymentID)
	assert.Nil(t, info.Status)
	assert.Nil(t, info.MerchantOrderID)
	assert.Nil(t, info.ExternalReference)
	assert.Equal(t, "{}", info.RawJSON)
}

func TestGetPayment_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	info, err := newTestClient(t, srv.URL).GetPayment(context.Background(), "9")
	assert.Error(t, err)
	assert.Equal(t, "{}", info.RawJSON)
	assert.Nil(t, info.Status)
}
