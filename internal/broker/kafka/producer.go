package kafka

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShareBox/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	w messageWriter
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

// StatusPublisher sends commodity status changes to one topic.
type StatusPublisher struct {
	p     *Producer
	topic string
}

func NewStatusPublisher(p *Producer, topic string) *StatusPublisher {
	return &StatusPublisher{p: p, topic: topic}
}

// PublishStatusChanged writes all events in one batch keyed by commodity id.
func (s *StatusPublisher) PublishStatusChanged(ctx context.Context, events ...messages.CommodityStatusChanged) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrap(err, "marshal status event")
		}
		msgs = append(msgs, kafka.Message{Topic: s.topic, Key: ev.Key(), Value: b})
	}
	if err := s.p.w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrapf(err, "kafka publish %d status events", len(msgs))
	}
	return nil
}
