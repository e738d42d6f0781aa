package messagepush

const (
	// BizCodeSwapEvent tags the messages carrying vault and order events
	BizCodeSwapEvent = "swap_event"
)

// PushMessage is the envelope of every pushed message
type PushMessage struct {
	BizCode       string `json:"bizCode"`
	WalletAddress string `json:"walletAddress"`
	RequestID     string `json:"requestId"`
	PushContent   string `json:"pushContent"`
	Time          int64  `json:"time"`
}
