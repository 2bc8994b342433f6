// Package archive mirrors persisted messages to a Kafka topic for external
// consumers. Publishing is best-effort and never affects delivery.
package archive

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/mahaj/topic-chat/pkg/model"
)

type record struct {
	Kind    string                `json:"kind"`
	Group   *model.GroupMessage   `json:"group,omitempty"`
	Private *model.PrivateMessage `json:"private,omitempty"`
}

type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Publisher{writer: writer, log: log}
}

func (p *Publisher) ArchiveGroup(ctx context.Context, msg model.GroupMessage) {
	p.publish(ctx, record{Kind: "group", Group: &msg})
}

func (p *Publisher) ArchivePrivate(ctx context.Context, msg model.PrivateMessage) {
	p.publish(ctx, record{Kind: "private", Private: &msg})
}

func (p *Publisher) publish(ctx context.Context, r record) {
	data, err := json.Marshal(r)
	if err != nil {
		p.log.Error("archive marshal failed", "error", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: data}); err != nil {
		p.log.Warn("archive publish failed", "error", err)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
