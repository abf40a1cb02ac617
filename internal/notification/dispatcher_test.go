package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingProvider struct {
	sent chan sentMail
	err  error
}

type sentMail struct {
	to       []string
	template string
	data     map[string]any
}

func (p *capturingProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return p.err
}

func (p *capturingProvider) SendTemplate(ctx context.Context, to []string, template string, data map[string]any) error {
	p.sent <- sentMail{to: to, template: template, data: data}
	return p.err
}

func TestDispatchPurchaseConfirmation_SendsFormattedMail(t *testing.T) {
	provider := &capturingProvider{sent: make(chan sentMail, 1)}
	dispatcher := New(Params{Log: zap.NewNop(), Email: provider})

	dispatcher.DispatchPurchaseConfirmation(context.Background(), PurchaseConfirmation{
		Email:     "buyer@example.com",
		FirstName: "Ada",
		Credits:   500,
		Amount:    3905,
		Currency:  "USD",
	})

	select {
	case mail := <-provider.sent:
		assert.Equal(t, []string{"buyer@example.com"}, mail.to)
		assert.Equal(t, "purchase_confirmation", mail.template)
		assert.Equal(t, "39.05", mail.data["amount"])
		assert.Equal(t, int64(500), mail.data["credits"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a purchase confirmation to be dispatched")
	}
}

func TestDispatchPurchaseConfirmation_SkipsEmptyRecipient(t *testing.T) {
	provider := &capturingProvider{sent: make(chan sentMail, 1)}
	dispatcher := New(Params{Log: zap.NewNop(), Email: provider})

	dispatcher.DispatchPurchaseConfirmation(context.Background(), PurchaseConfirmation{Credits: 100})

	select {
	case <-provider.sent:
		t.Fatal("no mail expected without a recipient")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatchPurchaseConfirmation_SendFailureIsSwallowed(t *testing.T) {
	provider := &capturingProvider{sent: make(chan sentMail, 1), err: errors.New("smtp down")}
	dispatcher := New(Params{Log: zap.NewNop(), Email: provider})

	require.NotPanics(t, func() {
		dispatcher.DispatchPurchaseConfirmation(context.Background(), PurchaseConfirmation{
			Email: "buyer@example.com",
		})
		<-provider.sent
	})
}
