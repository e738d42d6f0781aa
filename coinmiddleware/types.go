package coinmiddleware

// MessageBody is the envelope of a coin price message
type MessageBody struct {
	Data  *MessageData `json:"data"`
	Topic string       `json:"topic"`
}

type MessageData struct {
	ID        string       `json:"id"`
	PriceList []*PriceInfo `json:"priceList"`
}

// PriceInfo is the USD price of one coin. An empty TokenAddress is the native coin of the chain
type PriceInfo struct {
	ChainID      uint64  `json:"chainId"`
	Symbol       string  `json:"symbol"`
	TokenAddress string  `json:"tokenAddress"`
	Price        float64 `json:"price"`
	Timestamp    int64   `json:"timestamp"`
}
