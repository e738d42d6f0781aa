package messagepush

import (
	"context"
	"encoding/json"

	"github.com/0xPolygonHermez/zkevm-swap-service/events"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/pkg/errors"
)

func convertMsgToString(msg interface{}) (string, error) {
	var msgString string
	switch v := msg.(type) {
	case string:
		// If message is a string, just send it
		msgString = v
	default:
		// If message is an object, encode to json
		b, err := json.Marshal(msg)
		if err != nil {
			log.Errorf("msg cannot be encoded to json: msg[%v] err[%v]", msg, err)
			return "", errors.Wrap(err, "kafka produce: JSON marshal error")
		}
		msgString = string(b)
	}
	return msgString, nil
}

// eventMessage wraps e in a push envelope. Events of one order share a push key
func eventMessage(ctx context.Context, e events.Event) (*PushMessage, []produceOptFunc, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, nil, errors.Wrap(err, "json marshal error")
	}
	requestID, ok := ctx.Value(utils.CtxTraceID).(string)
	if !ok {
		requestID = utils.GenerateTraceID()
	}
	msg := &PushMessage{
		BizCode:       BizCodeSwapEvent,
		WalletAddress: e.Actor,
		RequestID:     requestID,
		PushContent:   string(b),
		Time:          e.Timestamp.UnixMilli(),
	}
	var opts []produceOptFunc
	switch {
	case e.OrderID != "":
		opts = append(opts, WithPushKey(e.OrderID))
	case e.ExternalRef != "":
		opts = append(opts, WithPushKey(e.ExternalRef))
	case e.VaultID != "":
		opts = append(opts, WithPushKey(e.VaultID))
	}
	return msg, opts, nil
}
