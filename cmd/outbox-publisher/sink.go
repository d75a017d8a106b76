package main

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/kafka"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

// message is one outbox row ready for the broker.
type message struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// sink delivers messages to the configured eventing backend.
type sink interface {
	Name() string
	Ping(ctx context.Context) error
	Publish(ctx context.Context, topic string, msg message) error
}

type pubsubSink struct {
	client *pubsub.Client
}

func newPubSubSink(client *pubsub.Client) sink {
	return &pubsubSink{client: client}
}

func (s *pubsubSink) Name() string { return "pubsub" }

func (s *pubsubSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *pubsubSink) Publish(ctx context.Context, topic string, msg message) error {
	pub := s.client.Publisher(topic)
	if pub == nil {
		return errNoPublisher(topic)
	}
	attrs := make(map[string]string, len(msg.Attributes))
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: attrs,
	})
	if result == nil {
		return errors.New("publish result is nil")
	}
	_, err := result.Get(ctx)
	return err
}

type kafkaSink struct {
	producer *kafka.Producer
}

func newKafkaSink(producer *kafka.Producer) sink {
	return &kafkaSink{producer: producer}
}

func (s *kafkaSink) Name() string { return "kafka" }

func (s *kafkaSink) Ping(ctx context.Context) error {
	return s.producer.Ping(ctx)
}

func (s *kafkaSink) Publish(ctx context.Context, topic string, msg message) error {
	return s.producer.Publish(ctx, topic, []byte(msg.Key), msg.Data, msg.Attributes)
}

func errNoPublisher(topic string) error {
	return fmt.Errorf("publisher not configured for topic %s", topic)
}
