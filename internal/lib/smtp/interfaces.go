// Package smtp содержит STARTTLS-транспорт почтового воркера.
package smtp

import "io"

// Client — минимальный срез *smtp.Client, достаточный для отправки
// одного письма. Выделен в интерфейс ради подмены в тестах.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает аутентифицированные SMTP-сессии.
type TransportInterface interface {
	// Connect возвращает готовый к отправке клиент.
	Connect() (Client, error)

	// From возвращает адрес отправителя.
	From() string
}
