package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	paymentdomain "github.com/rankforge/rankforge/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func signedHeaders(t *testing.T, payload []byte, secret string) http.Header {
	t.Helper()
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	sig := hex.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, sig))
	return headers
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)

	adapter, err := New(testSecret)
	require.NoError(t, err)
	assert.Equal(t, "stripe", adapter.Provider())
}

func TestVerify_AcceptsValidSignature(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_1","type":"customer.created"}`)
	assert.NoError(t, adapter.Verify(context.Background(), payload, signedHeaders(t, payload, testSecret)))
}

func TestVerify_RejectsBadSignatures(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)
	ctx := context.Background()
	payload := []byte(`{"id":"evt_1"}`)

	// Signed with the wrong secret.
	err = adapter.Verify(ctx, payload, signedHeaders(t, payload, "whsec_other"))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	// Missing header.
	err = adapter.Verify(ctx, payload, http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	// Malformed header.
	headers := http.Header{}
	headers.Set("Stripe-Signature", "not-a-signature")
	err = adapter.Verify(ctx, payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	// Signature over a different body.
	err = adapter.Verify(ctx, []byte(`{"id":"evt_2"}`), signedHeaders(t, payload, testSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestParse_CheckoutSessionCompleted(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)

	payload := []byte(`{
		"id": "evt_checkout_1",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {
			"id": "cs_test_abc",
			"mode": "payment",
			"customer": "cus_123",
			"currency": "usd",
			"amount_total": 900,
			"metadata": {
				"purchase_id": "1234567890123456789",
				"user_id": "987654321098765432",
				"subject_id": "sub_42",
				"credits": "100"
			}
		}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "stripe", event.Provider)
	assert.Equal(t, "evt_checkout_1", event.ProviderEventID)
	assert.Equal(t, paymentdomain.EventTypeCheckoutCompleted, event.Type)
	assert.Equal(t, paymentdomain.ModePayment, event.Mode)
	assert.Equal(t, "cs_test_abc", event.SessionID)
	assert.Equal(t, "1234567890123456789", event.PurchaseID.String())
	assert.Equal(t, "987654321098765432", event.LocalUserID.String())
	assert.Equal(t, "sub_42", event.SubjectID)
	assert.Equal(t, "cus_123", event.CustomerID)
	assert.Equal(t, int64(900), event.Amount)
	assert.Equal(t, "USD", event.Currency)
}

func TestParse_PaymentIntentSucceeded(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)

	payload := []byte(`{
		"id": "evt_pi_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_1",
			"amount": 3900,
			"amount_received": 3900,
			"currency": "usd",
			"customer": "cus_123",
			"metadata": {"subject_id": "sub_42", "credits": "500"}
		}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.EventTypePaymentSucceeded, event.Type)
	assert.Equal(t, int64(500), event.Credits)
	assert.Equal(t, int64(3900), event.Amount)
	assert.Equal(t, "sub_42", event.SubjectID)
}

func TestParse_CustomerCreated(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)

	payload := []byte(`{
		"id": "evt_cus_1",
		"type": "customer.created",
		"data": {"object": {
			"id": "cus_999",
			"email": "buyer@example.com",
			"metadata": {"user_id": "987654321098765432"}
		}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.EventTypeCustomerCreated, event.Type)
	assert.Equal(t, "cus_999", event.CustomerID)
	assert.Equal(t, "987654321098765432", event.LocalUserID.String())
}

func TestParse_UnhandledTypeIsIgnored(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)

	payload := []byte(`{"id": "evt_x", "type": "invoice.finalized", "data": {"object": {}}}`)
	_, err = adapter.Parse(context.Background(), payload)
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
}

func TestParse_MalformedPayloads(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = adapter.Parse(ctx, []byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	_, err = adapter.Parse(ctx, []byte(`{"type": "customer.created", "data": {"object": {"id": "cus_1"}}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent, "event id is required")

	_, err = adapter.Parse(ctx, []byte(`{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {}}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent, "session id is required")
}

func TestParse_StaleMetadataIDsDegradeToZero(t *testing.T) {
	adapter, err := New(testSecret)
	require.NoError(t, err)

	payload := []byte(`{
		"id": "evt_checkout_2",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_def",
			"mode": "payment",
			"metadata": {"purchase_id": "not-a-snowflake", "subject_id": "sub_42"}
		}}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Zero(t, event.PurchaseID, "unparseable hints degrade to zero, the reconciler falls back")
	assert.Equal(t, "sub_42", event.SubjectID)
}
