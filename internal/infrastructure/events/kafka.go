package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"groupbuy-backend/internal/domain"
)

type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Timeout = 5 * time.Second
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{producer: prod, topic: topic}, nil
}

// Send keys messages by subject so one order's events land on one partition.
func (k *KafkaSink) Send(ev domain.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.SubjectID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(ev.Type)},
		},
	})
	return err
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
