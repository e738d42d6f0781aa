package coinmiddleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// KafkaConsumer consumes the coin price feed
type KafkaConsumer interface {
	Start(ctx context.Context)
	Close() error
}

type kafkaConsumerImpl struct {
	topics  []string
	client  sarama.ConsumerGroup
	handler sarama.ConsumerGroupHandler
}

// NewKafkaConsumer joins the consumer group, prices are written to storage
func NewKafkaConsumer(cfg Config, storage priceStore) (KafkaConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = cfg.InitialOffset

	// Enable SASL authentication
	if cfg.Username != "" && cfg.Password != "" && cfg.RootCAPath != "" {
		config.Net.SASL.Enable = true
		config.Net.SASL.User = cfg.Username
		config.Net.SASL.Password = cfg.Password

		// Read the CA cert from file
		rootCA, err := os.ReadFile(cfg.RootCAPath)
		if err != nil {
			return nil, errors.Wrap(err, "Kafka consumer: read root CA cert fail")
		}

		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(rootCA); !ok {
			return nil, errors.New("NewKafkaConsumer caCertPool.AppendCertsFromPEM")
		}

		config.Net.TLS.Enable = true
		config.Net.TLS.Config = &tls.Config{RootCAs: caCertPool, MinVersion: tls.VersionTLS12}
	}

	if len(cfg.Brokers) == 0 || len(cfg.Topics) == 0 {
		return nil, errors.New("kafka consumer needs brokers and topics")
	}
	client, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroupID, config)
	if err != nil {
		return nil, errors.Wrap(err, "kafka consumer group init error")
	}

	return &kafkaConsumerImpl{
		topics:  cfg.Topics,
		client:  client,
		handler: NewMessageHandler(storage),
	}, nil
}

func (c *kafkaConsumerImpl) Start(ctx context.Context) {
	log.Debug("starting kafka consumer")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		log.Debugf("consume topics %v", c.topics)
		err := c.client.Consume(ctx, c.topics, c.handler)
		if err != nil {
			if !errors.Is(err, sarama.ErrClosedConsumerGroup) {
				log.Errorf("kafka consumer error: %v", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *kafkaConsumerImpl) Close() error {
	log.Debug("closing kafka consumer...")
	return c.client.Close()
}
