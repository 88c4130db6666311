package notification

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func parse(t *testing.T, body string) *Notification {
	n, err := Parse([]byte(body))
	assert.NoError(t, err)
	return n
}

func TestPaymentID_Precedence(t *testing.T) {
	// top-level id beats resource when both are present
	n := parse(t, `{"topic":"payment","id":"1","resource":"2"}`)
	assert.Equal(t, "1", n.PaymentID(nil))

	// nested data.id for the "type" style, numbers coerced to strings
	n = parse(t, `{"type":"payment","data":{"id":9876}}`)
	assert.Equal(t, "9876", n.PaymentID(nil))

	// raw resource value as last body rule
	n = parse(t, `{"topic":"payment","resource":"https://api.example.com/payments/42"}`)
	assert.Equal(t, "https://api.example.com/payments/42", n.PaymentID(nil))

	// merchant_order notifications never yield a payment id
	n = parse(t, `{"topic":"merchant_order","resource":"https://api.example.com/merchant_orders/555"}`)
	assert.Equal(t, "", n.PaymentID(nil))
}

func TestPaymentID_QueryFallback(t *testing.T) {
	n := parse(t, `{}`)

	q := url.Values{"topic": {"payment"}, "id": {"77"}}
	assert.Equal(t, "77", n.PaymentID(q))

	q = url.Values{"type": {"payment"}, "data.id": {"88"}}
	assert.Equal(t, "88", n.PaymentID(q))

	q = url.Values{"topic": {"payment"}, "resource": {"res-99"}}
	assert.Equal(t, "res-99", n.PaymentID(q))

	// body rules still win over query rules
	n = parse(t, `{"topic":"payment","id":"1"}`)
	q = url.Values{"topic": {"payment"}, "id": {"2"}}
	assert.Equal(t, "1", n.PaymentID(q))

	assert.Equal(t, "", parse(t, `{}`).PaymentID(nil))
}

func TestOrderID(t *testing.T) {
	n := parse(t, `{"type":"payment","data":{"id":12345}}`)
	assert.Equal(t, "12345", n.OrderID())

	n = parse(t, `{"topic":"merchant_order","resource":"https://api.mercadopago.com/merchant_orders/555"}`)
	assert.Equal(t, "555", n.OrderID())

	// trailing query strings on the resource are dropped
	n = parse(t, `{"topic":"merchant_order","resource":"https://api.mercadopago.com/merchant_orders/555?c=4"}`)
	assert.Equal(t, "555", n.OrderID())

	// data.id wins over resource
	n = parse(t, `{"data":{"id":"7"},"resource":"x/8"}`)
	assert.Equal(t, "7", n.OrderID())

	assert.Equal(t, "", parse(t, `{"action":"x"}`).OrderID())
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindPayment, parse(t, `{"type":"payment"}`).Kind())
	assert.Equal(t, KindMerchantOrder, parse(t, `{"type":"merchant_order"}`).Kind())
	assert.Equal(t, KindPayment, parse(t, `{"topic":"payment"}`).Kind())
	assert.Equal(t, KindMerchantOrder, parse(t, `{"topic":"merchant_order"}`).Kind())
	// type wins over topic
	assert.Equal(t, KindPayment, parse(t, `{"type":"payment","topic":"merchant_order"}`).Kind())
	assert.Equal(t, KindUnknown, parse(t, `{"type":"subscription"}`).Kind())
	assert.Equal(t, KindUnknown, parse(t, `{}`).Kind())
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	assert.Error(t, err)

	// null body parses to an empty envelope, every rule falls through
	n := parse(t, `null`)
	assert.Equal(t, "", n.PaymentID(nil))
	assert.Equal(t, "", n.OrderID())
	assert.Equal(t, KindUnknown, n.Kind())
}
