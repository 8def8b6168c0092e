// Package bus wraps kafka-go as the message-bus client described in spec
// §6: topic-per-priority pub/sub, bus key = request_id, offsets starting at
// "latest", no auto-commit (duplicates are tolerated — callers filter them
// by request_originator self-check).
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Message is one bus delivery: the topic it arrived on, plus the decoded
// payload bytes (callers decode JSON themselves, per topic kind REQ/RES).
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Client is a pub/sub handle over a set of brokers. Publish is safe to
// call concurrently from multiple goroutines (spec §5's bus-producer
// activity); each Subscribe returns an independent reader goroutine feed.
type Client struct {
	writer  *kafka.Writer
	brokers []string
}

func NewClient(brokers []string) *Client {
	return &Client{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

// Publish is fire-and-forget per spec §7: transient bus errors are retried
// at the client level (kafka-go internally retries leader lookups); beyond
// that, callers log and continue rather than block.
func (c *Client) Publish(ctx context.Context, topic, key string, value []byte) error {
	return c.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

// Subscribe opens a reader for topic starting at the latest offset. No
// GroupID is used and CommitMessages is never called — there is nothing to
// auto-commit, matching "auto-commit is disabled" in spec §6.
func (c *Client) Subscribe(topic string) *kafka.Reader {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		Topic:       topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	// StartOffset is only honoured for consumer groups; a group-less reader
	// starts at the first offset unless it is moved explicitly.
	_ = r.SetOffset(kafka.LastOffset)
	return r
}

// Consume runs until ctx is done, forwarding every message read from r onto
// out. Malformed reads are logged and skipped per spec §7's "malformed
// inbound messages" policy; the loop itself never exits on a read error
// other than ctx cancellation.
func Consume(ctx context.Context, topic string, r *kafka.Reader, out chan<- Message) {
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("topic", topic).Msg("bus_read_error")
			continue
		}
		select {
		case out <- Message{Topic: topic, Key: string(m.Key), Value: m.Value}:
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the writer. Readers are owned and closed by their caller
// (internal/node), since each has an independent lifecycle tied to its
// consumer goroutine.
func (c *Client) Close() error {
	return c.writer.Close()
}

// WaitForBroker polls the first broker address up to 100 times at 1s
// spacing before giving up, per spec §7's startup-connectivity policy.
func WaitForBroker(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	var lastErr error
	for attempt := 0; attempt < 100; attempt++ {
		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("kafka broker %s unreachable after 100 attempts: %w", brokers[0], lastErr)
}
