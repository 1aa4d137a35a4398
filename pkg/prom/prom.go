package prom

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemSettlement = "settlement"
	SystemPayout     = "payout"
	SystemWebhook    = "webhook"
)

const (
	MetricSettlementsTotal         = "settlements_total"           // result=settled|replayed|failed
	MetricSettlementDuration       = "settlement_duration_seconds" // type
	MetricCommissionDistributed    = "commission_distributed_total"
	MetricPayoutsTotal             = "payouts_total"            // status
	MetricWebhookDeliveriesTotal   = "webhook_deliveries_total" // outcome=accepted|rejected|replayed
	MetricDisbursementCallDuration = "disbursement_call_duration_seconds"
)

var (
	createLock sync.Mutex
	namespace  = "none"
	enabled    = false

	counterVecs   = make(map[string]*prometheus.CounterVec)
	histogramVecs = make(map[string]*prometheus.HistogramVec)

	defaultLabels prometheus.Labels
)

// Create registers all engine metrics under the given namespace.
func Create(host, env, ns string) error {
	createLock.Lock()
	defer createLock.Unlock()

	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = ns
	enabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemSettlement, MetricSettlementsTotal, []string{"result"}))
	hasError(createHistogramVec(SystemSettlement, MetricSettlementDuration, []string{"type"}))
	hasError(createCounterVec(SystemSettlement, MetricCommissionDistributed, []string{"role"}))
	hasError(createCounterVec(SystemPayout, MetricPayoutsTotal, []string{"status"}))
	hasError(createCounterVec(SystemWebhook, MetricWebhookDeliveriesTotal, []string{"outcome"}))
	hasError(createHistogramVec(SystemPayout, MetricDisbursementCallDuration, nil))

	return err
}

func createCounterVec(system, name string, labels []string) error {
	key := system + "_" + name
	if _, ok := counterVecs[key]; ok {
		return fmt.Errorf("metric already registered: %s", key)
	}
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   system,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	if err := prometheus.Register(v); err != nil {
		return err
	}
	counterVecs[key] = v
	return nil
}

func createHistogramVec(system, name string, labels []string) error {
	key := system + "_" + name
	if _, ok := histogramVecs[key]; ok {
		return fmt.Errorf("metric already registered: %s", key)
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   system,
		Name:        name,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	}, labels)
	if err := prometheus.Register(v); err != nil {
		return err
	}
	histogramVecs[key] = v
	return nil
}

func IncCounter(system, name string, labelValues ...string) {
	if !enabled {
		return
	}
	if v, ok := counterVecs[system+"_"+name]; ok {
		v.WithLabelValues(labelValues...).Inc()
	}
}

func AddCounter(system, name string, value float64, labelValues ...string) {
	if !enabled {
		return
	}
	if v, ok := counterVecs[system+"_"+name]; ok {
		v.WithLabelValues(labelValues...).Add(value)
	}
}

func ObserveHistogram(system, name string, value float64, labelValues ...string) {
	if !enabled {
		return
	}
	if v, ok := histogramVecs[system+"_"+name]; ok {
		v.WithLabelValues(labelValues...).Observe(value)
	}
}

// Handler exposes the default prometheus registry on fasthttp.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
