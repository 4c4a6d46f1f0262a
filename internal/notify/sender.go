package notify

import (
	"bytes"
	"fmt"
	"text/template"

	gopkgmail "gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender — прямая отправка почты, когда kafka выключена
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

var subjects = map[string]string{
	"order_received":       "We received your order",
	"order_paid":           "Payment confirmed",
	"order_cancelled":      "Your order was cancelled",
	"order_status_changed": "Order status update",
	"refund_requested":     "Refund request received",
	"security_alert":       "[ALERT] payment reconciliation incident",
}

var bodies = map[string]string{
	"order_received":       "Order {{.order_id}} received, total {{.total_cents}} cents. We will notify you once payment is confirmed.",
	"order_paid":           "Payment for order {{.order_id}} is confirmed. Total: {{.total_cents}} cents.",
	"order_cancelled":      "Order {{.order_id}} was cancelled and your payment refunded. Out of stock: {{.out_of_stock}}.",
	"order_status_changed": "Order {{.order_id}} is now {{.status}}.",
	"refund_requested":     "We registered your refund request for order {{.order_id}} ({{.requested_cents}} cents).",
	"security_alert":       "Reconciliation incident: {{.reason}}. Event {{.event_id}}, order {{.order_id}}.",
}

func (s *SMTPSender) Send(to, templateKey string, data map[string]any) error {
	subject, ok := subjects[templateKey]
	if !ok {
		return fmt.Errorf("unknown notification template %q", templateKey)
	}

	tmpl, err := template.New(templateKey).Parse(bodies[templateKey])
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buf.String())

	d := gopkgmail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	d.SSL = true
	return d.DialAndSend(m)
}
