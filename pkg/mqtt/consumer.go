package mqtt

import (
	"context"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IConsumer is the subscribe side of the transport: a handler is invoked for
// every inbound message on the subscribed topics.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(topic string, message mqtt.Message) error)
}

// MultiConsumer subscribes to a fixed set of topics on a shared client.
// Messages on one topic are delivered in transport order; delivery across
// topics may interleave.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler func(topic string, message mqtt.Message) error
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler func(topic string, message mqtt.Message) error) *MultiConsumer {
	return &MultiConsumer{
		client:  client,
		topics:  topics,
		handler: handler,
	}
}

func (m *MultiConsumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	m.handler = handler
}

// ConsumeMessage subscribes to every topic and blocks until the context is
// cancelled, then unsubscribes.
func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range m.topics {
		topic := topic // shadow for closure safety
		token := m.client.Subscribe(
			topic,
			0,
			func(_ mqtt.Client, msg mqtt.Message) {
				if m.handler == nil {
					log.Printf("mqtt: no handler set for topic %s", topic)
					return
				}
				if err := m.handler(topic, msg); err != nil {
					log.Printf("mqtt: error handling message on %s: %v", topic, err)
				}
			},
		)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt: error subscribing to topic %s: %v", topic, token.Error())
		} else {
			log.Printf("mqtt: subscribed to topic %s", topic)
		}
	}

	<-ctx.Done()

	for _, topic := range m.topics {
		m.client.Unsubscribe(topic)
	}
}
