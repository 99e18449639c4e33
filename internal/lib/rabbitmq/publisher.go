package rabbitmq

import "github.com/streadway/amqp"

// Publisher — тонкая обёртка над каналом для сервисов, которым
// не нужен прямой доступ к amqp.
type Publisher struct {
	channel *amqp.Channel
}

// NewPublisher создает новый экземпляр Publisher.
func NewPublisher(channel *amqp.Channel) *Publisher {
	return &Publisher{channel: channel}
}

// Publish публикует сообщение в обменник notifications.
func (p *Publisher) Publish(routingKey string, message any) error {
	return PublishMessage(p.channel, Exchange, routingKey, message)
}
