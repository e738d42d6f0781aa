package coinmiddleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/IBM/sarama"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	maxRetries   = 5
	retryBackoff = 3 * time.Second
)

type priceStore interface {
	SetCoinPrices(ctx context.Context, prices map[uint64]decimal.Decimal) error
}

// MessageHandler implements sarama.ConsumerGroupHandler, it stores the native coin prices it receives
type MessageHandler struct {
	storage priceStore
	backoff time.Duration
}

func NewMessageHandler(storage priceStore) *MessageHandler {
	return &MessageHandler{storage: storage, backoff: retryBackoff}
}

func (h *MessageHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *MessageHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *MessageHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				log.Info("message channel was closed")
				return nil
			}
			log.Debugf("message received topic[%v] partition[%v] offset[%v]", message.Topic, message.Partition, message.Offset)

			// A message still failing after maxRetries is skipped
			for i := 0; i < maxRetries; i++ {
				err := h.handleMessage(session.Context(), message)
				if err == nil {
					break
				}
				log.Errorf("handle kafka message error[%v] retryCnt[%v]", err, i)
				if isPermanent(err) {
					break
				}
				time.Sleep(h.backoff)
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

var errMalformed = errors.New("malformed price message")

func isPermanent(err error) bool {
	return errors.Is(err, errMalformed)
}

func (h *MessageHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	body := &MessageBody{}
	if err := json.Unmarshal(message.Value, body); err != nil {
		return errors.Wrapf(errMalformed, "unmarshal message body error: %v", err)
	}
	if body.Data == nil {
		return errors.Wrap(errMalformed, "message data is nil")
	}
	prices := nativePrices(body.Data.PriceList)
	if len(prices) == 0 {
		return nil
	}
	return h.storage.SetCoinPrices(ctx, prices)
}

// nativePrices keeps the newest positive native coin price of each chain
func nativePrices(priceList []*PriceInfo) map[uint64]decimal.Decimal {
	result := make(map[uint64]decimal.Decimal)
	newest := make(map[uint64]int64)
	for _, p := range priceList {
		if p == nil || p.ChainID == 0 || p.Price <= 0 {
			continue
		}
		if p.TokenAddress != "" && common.HexToAddress(p.TokenAddress) != (common.Address{}) {
			continue
		}
		if ts, ok := newest[p.ChainID]; ok && ts > p.Timestamp {
			continue
		}
		newest[p.ChainID] = p.Timestamp
		result[p.ChainID] = decimal.NewFromFloat(p.Price)
	}
	return result
}
