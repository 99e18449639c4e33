package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/creatorhub-kr/entitlement-engine/internal/config"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
)

// Transport открывает SMTP-сессии поверх STARTTLS с PLAIN-аутентификацией.
type Transport struct {
	host string
	port string
	user string
	pass string
	log  *slog.Logger
}

// NewTransport создает транспорт из SMTP-секции конфига.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		log:  log,
	}
}

// From возвращает адрес отправителя.
func (t *Transport) From() string {
	return t.user
}

// Connect устанавливает соединение, переводит его в TLS и
// аутентифицируется. Сервер без STARTTLS считается ошибкой: письма
// открытым текстом не уходят.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"

	conn, err := net.Dial("tcp", net.JoinHostPort(t.host, t.port))
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		t.closeQuietly(conn)
		return nil, fmt.Errorf("%s: handshake: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.closeQuietly(client)
		return nil, fmt.Errorf("%s: server does not support STARTTLS", op)
	}
	tlsConfig := &tls.Config{
		ServerName: t.host,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		t.closeQuietly(client)
		return nil, fmt.Errorf("%s: starttls: %w", op, err)
	}

	if err = client.Auth(smtp.PlainAuth("", t.user, t.pass, t.host)); err != nil {
		t.closeQuietly(client)
		return nil, fmt.Errorf("%s: auth: %w", op, err)
	}

	return &clientAdapter{c: client}, nil
}

func (t *Transport) closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		t.log.Warn("failed to close smtp resource", sl.Err(err))
	}
}

// clientAdapter сужает *smtp.Client до интерфейса Client.
type clientAdapter struct {
	c *smtp.Client
}

func (a *clientAdapter) Mail(from string) error        { return a.c.Mail(from) }
func (a *clientAdapter) Rcpt(to string) error          { return a.c.Rcpt(to) }
func (a *clientAdapter) Data() (io.WriteCloser, error) { return a.c.Data() }
func (a *clientAdapter) Quit() error                   { return a.c.Quit() }
func (a *clientAdapter) Close() error                  { return a.c.Close() }
