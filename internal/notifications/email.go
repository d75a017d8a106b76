package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Recipient is who receives an order confirmation.
type Recipient struct {
	Email string
	Name  string
}

// SummaryItem is one line on the confirmation.
type SummaryItem struct {
	Name      string
	Weight    string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// OrderSummary is the notification view of a settled order.
type OrderSummary struct {
	OrderID     uuid.UUID
	OrderedAt   time.Time
	Items       []SummaryItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	Address     types.ShippingAddress
}

// SummaryFromOrder snapshots the fields a confirmation needs.
func SummaryFromOrder(order *models.Order) OrderSummary {
	summary := OrderSummary{
		OrderID:   order.ID,
		OrderedAt: order.OrderedAt,
		Total:     order.TotalAmount,
		Address:   order.ShippingAddress,
		Items:     make([]SummaryItem, 0, len(order.Items)),
	}
	subtotal := decimal.Zero
	for _, item := range order.Items {
		subtotal = subtotal.Add(item.LineTotal)
		summary.Items = append(summary.Items, SummaryItem{
			Name:      item.Name,
			Weight:    item.Weight,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	summary.Subtotal = subtotal
	summary.ShippingFee = order.TotalAmount.Sub(subtotal)
	if summary.ShippingFee.IsNegative() {
		summary.ShippingFee = decimal.Zero
	}
	return summary
}

// Message is a rendered plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Bytes renders the message with RFC 5322 headers and CRLF line endings.
func (m Message) Bytes() []byte {
	var b strings.Builder
	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// OrderReference is the short, human-facing order number.
func OrderReference(orderID uuid.UUID) string {
	s := orderID.String()
	return strings.ToUpper(s[len(s)-6:])
}

// ComposeConfirmation renders the order confirmation for recipient.
func ComposeConfirmation(storeName, from string, to Recipient, summary OrderSummary) Message {
	ref := OrderReference(summary.OrderID)

	var b strings.Builder
	greeting := "Hello"
	if name := strings.TrimSpace(to.Name); name != "" {
		greeting += " " + name
	}
	fmt.Fprintf(&b, "%s,\n\n", greeting)
	fmt.Fprintf(&b, "Thank you for shopping with %s. Your order #%s has been confirmed.\n\n", storeName, ref)
	b.WriteString("Items:\n")
	for _, item := range summary.Items {
		fmt.Fprintf(&b, "  - %s (%s) x %d @ %s = %s\n",
			item.Name, item.Weight, item.Quantity, item.UnitPrice.StringFixed(2), item.LineTotal.StringFixed(2))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", summary.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Shipping: %s\n", summary.ShippingFee.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s\n\n", summary.Total.StringFixed(2))
	b.WriteString("Shipping to:\n")
	for _, line := range summary.Address.Lines() {
		b.WriteString("  " + line + "\n")
	}
	fmt.Fprintf(&b, "\nWe will let you know when your order ships.\n\n%s\n", storeName)

	return Message{
		From:    from,
		To:      to.Email,
		Subject: fmt.Sprintf("Your %s Order #%s is Confirmed!", storeName, ref),
		Body:    b.String(),
	}
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail over SMTP, upgrading with STARTTLS when offered.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPSender builds a sender from email config.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

// LogSender records messages instead of delivering them. Used when SMTP
// credentials are absent.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.logg == nil {
		return nil
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	s.logg.Info(logCtx, "email delivery skipped; smtp not configured")
	return nil
}

// NewSender picks SMTP when configured and the log sender otherwise.
func NewSender(cfg config.EmailConfig, logg *logger.Logger) Sender {
	if cfg.Configured() {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logg)
}
