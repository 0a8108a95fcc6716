// Package events publishes a message for every timeline fetched from the upstream provider.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// TimelineFetchedEvent is the message value published per upstream fetch.
type TimelineFetchedEvent struct {
	ID        string            `json:"id"`
	Provider  string            `json:"provider"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	LatQ      int64             `json:"lat_q"`
	LonQ      int64             `json:"lon_q"`
	Precision int               `json:"precision"`
	FetchedAt time.Time         `json:"fetched_at"`
	Snapshots []json.RawMessage `json:"snapshots"`
}

// KafkaPublisher implements weather.TimelineObserver on a sarama SyncProducer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      logrus.FieldLogger
	newID    func() string
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, topic string, log logrus.FieldLogger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, log), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, log logrus.FieldLogger) *KafkaPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log.WithField("component", "kafka_publisher"),
		newID:    func() string { return uuid.NewString() },
	}
}

// TimelineFetched publishes one message keyed by the quantized location.
func (k *KafkaPublisher) TimelineFetched(_ context.Context, fetch weather.TimelineFetch) error {
	event := TimelineFetchedEvent{
		ID:        k.newID(),
		Provider:  fetch.Provider,
		Latitude:  fetch.Latitude,
		Longitude: fetch.Longitude,
		LatQ:      fetch.Point.Lat,
		LonQ:      fetch.Point.Lon,
		Precision: fetch.Precision,
		FetchedAt: fetch.FetchedAt,
		Snapshots: []json.RawMessage{},
	}
	if fetch.Snapshots != nil {
		for _, s := range fetch.Snapshots.Snapshots() {
			raw, err := weather.EncodeSnapshot(s)
			if err != nil {
				return err
			}
			event.Snapshots = append(event.Snapshots, json.RawMessage(raw))
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode timeline event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(fetch.Point.Lat, 10) + "," + strconv.FormatInt(fetch.Point.Lon, 10)),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		k.log.WithError(err).Error("failed to produce timeline event")
		return fmt.Errorf("failed to produce timeline event: %w", err)
	}

	k.log.WithFields(logrus.Fields{
		"id":        event.ID,
		"partition": partition,
		"offset":    offset,
	}).Debug("timeline event produced")
	return nil
}

func (k *KafkaPublisher) Close() error {
	if k.producer == nil {
		return nil
	}
	return k.producer.Close()
}
