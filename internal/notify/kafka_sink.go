package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaSink publishes notifications as JSON, keyed by employee so one
// employee's messages stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logrus.Debug(fmt.Sprintf(msg, args...))
		}),
	}}
}

func (s *KafkaSink) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(n.EmployeeID), 10)),
		Value: payload,
		Time:  n.CreatedAt,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
