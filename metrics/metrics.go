package metrics

import (
	"math/big"
	"strconv"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/prometheus/client_golang/prometheus"
)

func initMetrics(reg prometheus.Registerer, env string) {
	mutex.Lock()
	if !initialized {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{labelEnv: env}, reg)
		gauges = make(map[string]*prometheus.GaugeVec)
		counters = make(map[string]*prometheus.CounterVec)
		histograms = make(map[string]*prometheus.HistogramVec)
		initialized = true
	}
	mutex.Unlock()

	registerCounter(prometheus.CounterOpts{Name: metricRequestCount}, labelMethod, labelIsSuccess)
	registerHistogram(prometheus.HistogramOpts{Name: metricRequestLatency}, labelMethod, labelIsSuccess)
	registerCounter(prometheus.CounterOpts{Name: metricVaultEvent}, labelChainID, labelEventType)
	registerCounter(prometheus.CounterOpts{Name: metricVaultLocked}, labelChainID)
	registerCounter(prometheus.CounterOpts{Name: metricVaultClaimed}, labelChainID)
	registerCounter(prometheus.CounterOpts{Name: metricVaultRecovered}, labelChainID)
	registerCounter(prometheus.CounterOpts{Name: metricOrderCount}, labelStatus)
	registerHistogram(prometheus.HistogramOpts{Name: metricOrderFillWait, Buckets: prometheus.ExponentialBuckets(1, 2, 12)}, labelChainID) //nolint:gomnd
	registerCounter(prometheus.CounterOpts{Name: metricGuardRejections}, labelReason)
	registerGauge(prometheus.GaugeOpts{Name: metricLatestBlockNum}, labelChainID)
	registerCounter(prometheus.CounterOpts{Name: metricSecretReleased}, labelChainID)
}

// RecordRequest increments the request count for the method
func RecordRequest(method string, isSuccess bool) {
	counterInc(metricRequestCount, map[string]string{labelMethod: method, labelIsSuccess: strconv.FormatBool(isSuccess)})
}

// RecordRequestLatency records the latency histogram in milliseconds
func RecordRequestLatency(method string, latency time.Duration, isSuccess bool) {
	histogramObserve(metricRequestLatency, float64(latency.Milliseconds()), map[string]string{labelMethod: method, labelIsSuccess: strconv.FormatBool(isSuccess)})
}

// RecordVaultEvent counts one vault lifecycle event
func RecordVaultEvent(chainID uint64, eventType string) {
	counterInc(metricVaultEvent, map[string]string{labelChainID: strconv.FormatUint(chainID, 10), labelEventType: eventType})
}

// RecordVaultLocked adds amount to the total locked on chainID
func RecordVaultLocked(chainID uint64, amount *big.Int) {
	counterAdd(metricVaultLocked, toFloat(amount), map[string]string{labelChainID: strconv.FormatUint(chainID, 10)})
}

// RecordVaultClaimed adds amount to the total claimed on chainID
func RecordVaultClaimed(chainID uint64, amount *big.Int) {
	counterAdd(metricVaultClaimed, toFloat(amount), map[string]string{labelChainID: strconv.FormatUint(chainID, 10)})
}

// RecordVaultRecovered adds amount to the total recovered on chainID
func RecordVaultRecovered(chainID uint64, amount *big.Int) {
	counterAdd(metricVaultRecovered, toFloat(amount), map[string]string{labelChainID: strconv.FormatUint(chainID, 10)})
}

// RecordOrder counts an order reaching status
func RecordOrder(status string) {
	counterInc(metricOrderCount, map[string]string{labelStatus: status})
}

// RecordOrderFillWait records the time between order creation and fill
func RecordOrderFillWait(sourceChainID uint64, dur time.Duration) {
	histogramObserve(metricOrderFillWait, dur.Seconds(), map[string]string{labelChainID: strconv.FormatUint(sourceChainID, 10)})
}

// RecordGuardRejection counts an operation refused by the security guard
func RecordGuardRejection(reason string) {
	counterInc(metricGuardRejections, map[string]string{labelReason: reason})
}

// SetLatestBlockNum records the latest height read from chainID
func SetLatestBlockNum(chainID uint64, blockNum uint64) {
	gaugeSet(metricLatestBlockNum, float64(blockNum), map[string]string{labelChainID: strconv.FormatUint(chainID, 10)})
}

// RecordSecretReleased counts a secret released after finality
func RecordSecretReleased(chainID uint64) {
	counterInc(metricSecretReleased, map[string]string{labelChainID: strconv.FormatUint(chainID, 10)})
}

func toFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	// This is inflated amount, e.g.: 1 ETH is stored as 1000000000000000000
	f, err := strconv.ParseFloat(amount.String(), 64)
	if err != nil {
		log.Warnf("cannot convert [%v] to float", amount.String())
	}
	return f
}
