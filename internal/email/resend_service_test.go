package email

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	requests []*resend.SendEmailRequest
	err      error
}

func (f *fakeSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, params)
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

func newTestService(notify string, s sender) *ResendService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &ResendService{emails: s, fromEmail: "AquaTrack <noreply@example.com>", notify: notify, logger: logger}
}

func TestSendSettlementNotice(t *testing.T) {
	fake := &fakeSender{}
	svc := newTestService("ops@example.com", fake)
	customer := &models.Customer{Name: "Rosa Díaz", Phone: "555-0101"}

	err := svc.SendSettlementNotice(customer, 3, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, []string{"ops@example.com"}, fake.requests[0].To)
	assert.Equal(t, "Cuenta liquidada - Rosa Díaz", fake.requests[0].Subject)
	assert.Contains(t, fake.requests[0].Html, "01/03/2026 10:30")
	assert.Contains(t, fake.requests[0].Html, "<strong>Pedidos liquidados:</strong> 3")
}

func TestSendSkipsWithoutNotifyAddress(t *testing.T) {
	fake := &fakeSender{}
	svc := newTestService("", fake)

	err := svc.SendDeliveryReminder(&models.Customer{Name: "Hotel Sol"}, time.Now())

	require.NoError(t, err)
	assert.Empty(t, fake.requests)
}

func TestSendWrapsResendError(t *testing.T) {
	svc := newTestService("ops@example.com", &fakeSender{err: errors.New("rate limited")})

	err := svc.SendDeliveryReminder(&models.Customer{Name: "Hotel Sol"}, time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
