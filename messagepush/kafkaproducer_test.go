package messagepush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/events"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() events.Event {
	return events.Event{
		Type:      events.OrderFilled,
		ChainID:   1101,
		OrderID:   "order-1",
		VaultID:   "0x01",
		Actor:     "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Amount:    "2200",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublish(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	p := newKafkaProducer(mockProducer, Config{Topic: "swap-events"})
	ctx := context.WithValue(context.Background(), utils.CtxTraceID, "trace-1")

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "swap-events" {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "order-1" {
			return fmt.Errorf("unexpected key %s", key)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var push PushMessage
		if err := json.Unmarshal(value, &push); err != nil {
			return err
		}
		if push.BizCode != BizCodeSwapEvent || push.RequestID != "trace-1" || push.Time != testEvent().Timestamp.UnixMilli() {
			return fmt.Errorf("unexpected envelope %+v", push)
		}
		var e events.Event
		if err := json.Unmarshal([]byte(push.PushContent), &e); err != nil {
			return err
		}
		if e.Type != events.OrderFilled || e.Amount != "2200" {
			return fmt.Errorf("unexpected event %+v", e)
		}
		return nil
	})
	require.NoError(t, p.Publish(ctx, testEvent()))

	sendErr := errors.New("broker down")
	mockProducer.ExpectSendMessageAndFail(sendErr)
	assert.ErrorIs(t, p.Publish(ctx, testEvent()), sendErr)

	require.NoError(t, p.Close())
}

func TestKafkaProduceWithOptions(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	p := newKafkaProducer(mockProducer, Config{Topic: "default", PushKey: "default-key"})

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "other" {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		value, _ := msg.Value.Encode()
		if string(value) != "hello" {
			return fmt.Errorf("unexpected value %s", value)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "default-key" {
			return fmt.Errorf("unexpected key %s", key)
		}
		return nil
	})
	require.NoError(t, p.Produce("hello", WithTopic("other")))
	require.NoError(t, p.Close())
}

func TestFakeProducer(t *testing.T) {
	p, err := NewKafkaProducer(Config{UseFakeProducer: true, Topic: "swap-events"})
	require.NoError(t, err)

	var publisher events.Publisher = p
	for i := 0; i < fakeMessageLimit+5; i++ {
		require.NoError(t, publisher.Publish(context.Background(), testEvent()))
	}
	msgs := p.GetFakeMessages("swap-events")
	assert.Len(t, msgs, fakeMessageLimit)
	assert.Empty(t, p.GetFakeMessages("swap-events"))

	var push PushMessage
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &push))
	assert.Equal(t, testEvent().Actor, push.WalletAddress)
	assert.NotEmpty(t, push.RequestID)
	require.NoError(t, p.Close())
}
