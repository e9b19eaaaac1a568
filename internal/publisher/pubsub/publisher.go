// Package pubsub implements a Google Cloud Pub/Sub publisher for build events.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	topic  *pubsub.Topic
	client *pubsub.Client
}

// New creates a Publisher for an existing topic handle.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Dial connects to projectID and returns a Publisher for topicName after
// checking that the topic exists. Close releases the client.
func Dial(ctx context.Context, projectID, topicName string, opts ...option.ClientOption) (*Publisher, error) {
	if projectID == "" || topicName == "" {
		return nil, errors.New("project id and topic name are required")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil || !exists {
		_ = client.Close()
		if err != nil {
			return nil, fmt.Errorf("check pubsub topic %q: %w", topicName, err)
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicName, projectID)
	}
	return &Publisher{topic: topic, client: client}, nil
}

// Publish marshals the payload to JSON and waits for the server-assigned ID.
// The topic argument is recorded as an attribute; the message always goes to
// the configured topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub topic is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{Data: data}
	if topic != "" {
		msg.Attributes = map[string]string{"event": topic}
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and closes the client if Dial created it.
func (p *Publisher) Close() error {
	if p == nil || p.topic == nil {
		return nil
	}
	p.topic.Stop()
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
