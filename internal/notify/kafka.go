package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Producer is the part of a franz-go client KafkaSink needs.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaSink produces changes asynchronously, keyed by document id so the
// changes of one document stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
	logger   *zap.SugaredLogger
}

func NewKafkaSink(producer Producer, topic string, logger *zap.SugaredLogger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, logger: logger}
}

// DialKafka builds a producer client for a comma separated broker list.
func DialKafka(brokers, topic string) (*kgo.Client, error) {
	var seeds []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			seeds = append(seeds, b)
		}
	}
	return kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
}

// Publish enqueues the record and returns. Delivery failures are only logged.
func (s *KafkaSink) Publish(ctx context.Context, c StatusChange) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(strconv.FormatUint(uint64(c.DocumentID), 10)),
		Value: payload,
	}
	// the request context ends with the response; delivery must outlive it
	s.producer.Produce(context.WithoutCancel(ctx), rec, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.Warnw("kafka produce failed",
				"topic", r.Topic,
				"document_id", c.DocumentID,
				"error", err,
			)
		}
	})
	return nil
}
