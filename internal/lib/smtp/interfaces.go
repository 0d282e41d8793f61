// Package smtp содержит SMTP-транспорт сервиса уведомлений.
package smtp

import (
	"context"
	"io"
)

// Client часть *smtp.Client, которой пользуется отправитель писем.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает авторизованные SMTP-сессии.
type TransportInterface interface {
	Connect(ctx context.Context) (Client, error)
	Sender() string
}
