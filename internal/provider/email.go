package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-engine/internal/domain"
	"github.com/kursadbilgin/notify-engine/internal/message"
)

const (
	defaultSMTPPort  = 587
	implicitTLSPort  = 465
	defaultSenderTag = "Notify Engine"
)

// EmailAdapter sends plain-text mail over SMTP. STARTTLS is used whenever the
// server offers it; port 465 uses implicit TLS.
type EmailAdapter struct {
	timeout time.Duration
	// tlsConfig is overridden in tests.
	tlsConfig func(host string) *tls.Config
	now       func() time.Time
}

func NewEmailAdapter(timeout time.Duration) *EmailAdapter {
	return &EmailAdapter{
		timeout: NormalizeTimeout(timeout),
		tlsConfig: func(host string) *tls.Config {
			return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
		},
		now: time.Now,
	}
}

func (a *EmailAdapter) Type() domain.ChannelType { return domain.ChannelEmail }

func (a *EmailAdapter) Shape() message.Shape { return message.ShapeText }

type emailSettings struct {
	host     string
	port     int
	from     *mail.Address
	to       []*mail.Address
	authUser string
	authPass string
}

func parseEmailSettings(config map[string]string) (emailSettings, error) {
	host, err := requireValue(config, "smtpHost", "SMTP host")
	if err != nil {
		return emailSettings{}, err
	}
	port, err := optionalInt(config, "smtpPort", "SMTP port", defaultSMTPPort, 1, 65535)
	if err != nil {
		return emailSettings{}, err
	}
	rawFrom, err := requireValue(config, "emailFrom", "Sender address")
	if err != nil {
		return emailSettings{}, err
	}
	from, err := mail.ParseAddress(rawFrom)
	if err != nil {
		return emailSettings{}, Skip("Sender address is invalid", err)
	}
	if name := configValue(config, "senderName"); name != "" {
		from.Name = name
	} else if from.Name == "" {
		from.Name = defaultSenderTag
	}
	rawTo, err := requireValue(config, "emailTo", "Recipient address")
	if err != nil {
		return emailSettings{}, err
	}
	to, err := mail.ParseAddressList(rawTo)
	if err != nil {
		return emailSettings{}, Skip("Recipient address is invalid", err)
	}

	settings := emailSettings{
		host:     host,
		port:     port,
		from:     from,
		to:       to,
		authUser: configValue(config, "authUser"),
		authPass: configValue(config, "authPass"),
	}
	if settings.authUser != "" && settings.authPass == "" {
		return emailSettings{}, Skipf("SMTP password is not configured")
	}
	return settings, nil
}

func (a *EmailAdapter) Send(ctx context.Context, config map[string]string, msg message.Message) error {
	settings, err := parseEmailSettings(config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err = a.deliver(ctx, settings, a.compose(settings, msg))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
		return &ProviderError{Message: "request timed out", Cause: err}
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return &ProviderError{StatusCode: protoErr.Code, Message: protoErr.Msg, Cause: err}
	}
	return &ProviderError{Message: "smtp delivery failed", Cause: err}
}

func (a *EmailAdapter) deliver(ctx context.Context, settings emailSettings, body []byte) error {
	address := net.JoinHostPort(settings.host, strconv.Itoa(settings.port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if settings.port == implicitTLSPort {
		conn = tls.Client(conn, a.tlsConfig(settings.host))
	}

	client, err := smtp.NewClient(conn, settings.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if settings.port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(a.tlsConfig(settings.host)); err != nil {
				return err
			}
		}
	}

	if settings.authUser != "" {
		if err := client.Auth(smtp.PlainAuth("", settings.authUser, settings.authPass, settings.host)); err != nil {
			return err
		}
	}

	if err := client.Mail(settings.from.Address); err != nil {
		return err
	}
	for _, rcpt := range settings.to {
		if err := client.Rcpt(rcpt.Address); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (a *EmailAdapter) compose(settings emailSettings, msg message.Message) []byte {
	recipients := make([]string, 0, len(settings.to))
	for _, rcpt := range settings.to {
		recipients = append(recipients, rcpt.String())
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", settings.from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", a.now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	fmt.Fprintf(&buf, "X-Notify-Event: %s\r\n", msg.Kind)
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
