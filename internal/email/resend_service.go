package email

import (
	"fmt"
	"time"

	"github.com/hypernova-labs/aquatrack-service/internal/models"
	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

type sender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendService envía las notificaciones operativas usando Resend API
type ResendService struct {
	emails    sender
	fromEmail string
	notify    string
	logger    *logrus.Logger
}

// NewResendService crea una nueva instancia de ResendService
func NewResendService(apiKey, from, notify string, logger *logrus.Logger) *ResendService {
	return &ResendService{
		emails:    resend.NewClient(apiKey).Emails,
		fromEmail: from,
		notify:    notify,
		logger:    logger,
	}
}

// SendSettlementNotice avisa al operador que se liquidó la cuenta de un cliente
func (s *ResendService) SendSettlementNotice(customer *models.Customer, settled int64, at time.Time) error {
	subject := fmt.Sprintf("Cuenta liquidada - %s", customer.Name)

	htmlContent := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Cuenta liquidada</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #e8f4fd; padding: 20px; text-align: center; border-radius: 8px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Cuenta liquidada</h1>
            <p>Fecha: %s</p>
        </div>
        <ul>
            <li><strong>Cliente:</strong> %s</li>
            <li><strong>Teléfono:</strong> %s</li>
            <li><strong>Pedidos liquidados:</strong> %d</li>
        </ul>
    </div>
</body>
</html>`,
		at.Format("02/01/2006 15:04"),
		customer.Name,
		customer.Phone,
		settled)

	return s.send(subject, htmlContent)
}

// SendDeliveryReminder avisa al operador de una entrega programada próxima
func (s *ResendService) SendDeliveryReminder(customer *models.Customer, deliveredAt time.Time) error {
	subject := fmt.Sprintf("Entrega programada - %s", customer.Name)

	htmlContent := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Entrega programada</title>
</head>
<body>
    <h2>Entrega programada para %s</h2>
    <p><strong>Cliente:</strong> %s</p>
    <p><strong>Dirección:</strong> %s</p>
    <p><strong>Teléfono:</strong> %s</p>
</body>
</html>`,
		deliveredAt.Format("02/01/2006 15:04"),
		customer.Name,
		customer.Address,
		customer.Phone)

	return s.send(subject, htmlContent)
}

func (s *ResendService) send(subject, html string) error {
	if s.notify == "" {
		s.logger.WithField("subject", subject).Debug("No notification address configured, skipping email")
		return nil
	}

	request := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{s.notify},
		Subject: subject,
		Html:    html,
	}

	result, err := s.emails.Send(request)
	if err != nil {
		return fmt.Errorf("error sending email via Resend: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"email_id": result.Id,
		"to":       s.notify,
		"subject":  subject,
	}).Info("Email sent successfully via Resend")

	return nil
}
