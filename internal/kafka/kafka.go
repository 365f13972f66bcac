// Package kafka creates the job topic and probes broker readiness before producers and consumers start
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

// InitKafkaTopics creates the given topics, treating "already exists" as success.
// It retries every delay until all topics exist or ctx is done.
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}
	for _, t := range topics {
		req.Topics = append(req.Topics, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		if err == nil && topicsReady(resp) {
			zlog.Logger.Info().Strs("topics", topics).Msg("Kafka topics ready")
			return nil
		}
		if err != nil {
			zlog.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Topic creation request failed")
		}

		if err := sleepCtx(ctx, delay); err != nil {
			return fmt.Errorf("init kafka topics: %w", err)
		}
	}
}

func topicsReady(resp *kafkago.CreateTopicsResponse) bool {
	ready := true
	for topic, tErr := range resp.Errors {
		if tErr == nil || errors.Is(tErr, kafkago.TopicAlreadyExists) {
			continue
		}
		zlog.Logger.Warn().Err(tErr).Str("topic", topic).Msg("Topic creation error")
		ready = false
	}
	return ready
}

// WaitKafkaReady blocks until the broker accepts TCP connections or ctx is done.
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	dialer := &kafkago.Dialer{Timeout: 5 * time.Second}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if cErr := conn.Close(); cErr != nil {
				zlog.Logger.Warn().Err(cErr).Msg("Failed to close readiness probe connection")
			}
			zlog.Logger.Info().Str("broker", brokerAddr).Msg("Kafka is ready")
			return nil
		}

		zlog.Logger.Info().Dur("retry_in", delay).Msg("Kafka not ready yet")
		if err := sleepCtx(ctx, delay); err != nil {
			return fmt.Errorf("wait kafka: %w", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
