package messagepush

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/0xPolygonHermez/zkevm-swap-service/events"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

type produceOptions struct {
	topic   string
	pushKey string
}

type produceOptFunc func(opts *produceOptions)

// WithTopic overrides the default topic
func WithTopic(topic string) produceOptFunc {
	return func(opts *produceOptions) {
		opts.topic = topic
	}
}

// WithPushKey sets the partitioning key of the message
func WithPushKey(key string) produceOptFunc {
	return func(opts *produceOptions) {
		opts.pushKey = key
	}
}

// KafkaProducer pushes messages and swap events to kafka
type KafkaProducer interface {
	Produce(msg interface{}, optFns ...produceOptFunc) error
	// Publish pushes a vault or order event, keyed by its order
	Publish(ctx context.Context, e events.Event) error
	Close() error

	// GetFakeMessages returns the messages from the fake producer
	// Not available for real kafka producer
	GetFakeMessages(topic string) []string
}

type kafkaProducerImpl struct {
	producer       sarama.SyncProducer
	defaultTopic   string
	defaultPushKey string
}

// NewKafkaProducer connects a sync producer to cfg.Brokers, or returns the fake producer
func NewKafkaProducer(cfg Config) (KafkaProducer, error) {
	if cfg.UseFakeProducer {
		log.Infof("start to init fake kafka producer!")
		return newFakeProducer(cfg), nil
	}
	log.Infof("start to init real kafka producer!")
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	// Enable SASL authentication
	if cfg.Username != "" && cfg.Password != "" && cfg.RootCAPath != "" {
		config.Net.SASL.Enable = true
		config.Net.SASL.User = cfg.Username
		config.Net.SASL.Password = cfg.Password

		rootCA, err := os.ReadFile(cfg.RootCAPath)
		if err != nil {
			return nil, errors.Wrap(err, "NewKafkaProducer read root CA cert fail")
		}
		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(rootCA); !ok {
			return nil, errors.New("NewKafkaProducer caCertPool.AppendCertsFromPEM")
		}
		config.Net.TLS.Enable = true
		config.Net.TLS.Config = &tls.Config{RootCAs: caCertPool, MinVersion: tls.VersionTLS12}
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "NewKafkaProducer: NewSyncProducer error")
	}
	return newKafkaProducer(producer, cfg), nil
}

func newKafkaProducer(producer sarama.SyncProducer, cfg Config) *kafkaProducerImpl {
	return &kafkaProducerImpl{
		producer:       producer,
		defaultTopic:   cfg.Topic,
		defaultPushKey: cfg.PushKey,
	}
}

// Produce send a message to the Kafka topic
// msg should be either a string or an object
// If msg is an object, it will be encoded to JSON before being sent
func (p *kafkaProducerImpl) Produce(msg interface{}, optFns ...produceOptFunc) error {
	if p == nil || p.producer == nil {
		log.Debugf("Kafka producer is nil")
		return nil
	}
	opts := &produceOptions{
		topic:   p.defaultTopic,
		pushKey: p.defaultPushKey,
	}
	for _, f := range optFns {
		f(opts)
	}

	msgString, err := convertMsgToString(msg)
	if err != nil {
		return err
	}

	produceMsg := &sarama.ProducerMessage{
		Topic: opts.topic,
		Value: sarama.StringEncoder(msgString),
	}
	if opts.pushKey != "" {
		produceMsg.Key = sarama.StringEncoder(opts.pushKey)
	}

	partition, offset, err := p.producer.SendMessage(produceMsg)
	if err != nil {
		return errors.Wrap(err, "kafka SendMessage error")
	}

	log.Debugf("Produced to Kafka: topic[%v] msg[%v] partition[%v] offset[%v]", opts.topic, msgString, partition, offset)
	return nil
}

func (p *kafkaProducerImpl) Publish(ctx context.Context, e events.Event) error {
	msg, opts, err := eventMessage(ctx, e)
	if err != nil {
		return err
	}
	return p.Produce(msg, opts...)
}

func (p *kafkaProducerImpl) Close() error {
	return p.producer.Close()
}

func (p *kafkaProducerImpl) GetFakeMessages(string) []string {
	log.Warnf("GetFakeMessages should only be called from fakeProducer")
	return nil
}
