package metrics

const (
	defaultMetricsEndpoint = "/metrics"
)

// Metric types
const (
	typeGauge     = "gauge"
	typeCounter   = "counter"
	typeHistogram = "histogram"
)

// Metric names and labels
const (
	prefix   = "swap_"
	labelEnv = "env"

	prefixRequest        = prefix + "request_"
	metricRequestCount   = prefixRequest + "count"
	metricRequestLatency = prefixRequest + "latency_ms"
	labelMethod          = "method"
	labelIsSuccess       = "is_success"

	prefixVault          = prefix + "vault_"
	metricVaultEvent     = prefixVault + "event_count"
	metricVaultLocked    = prefixVault + "locked_amount"
	metricVaultClaimed   = prefixVault + "claimed_amount"
	metricVaultRecovered = prefixVault + "recovered_amount"
	labelChainID         = "chain_id"
	labelEventType       = "type"

	prefixOrder         = prefix + "order_"
	metricOrderCount    = prefixOrder + "count"
	metricOrderFillWait = prefixOrder + "fill_wait_sec"
	labelStatus         = "status"

	prefixSecurity        = prefix + "security_"
	metricGuardRejections = prefixSecurity + "rejection_count"
	labelReason           = "reason"

	prefixFinality       = prefix + "finality_"
	metricLatestBlockNum = prefixFinality + "latest_block_num"
	metricSecretReleased = prefixFinality + "secret_released_count"
)
