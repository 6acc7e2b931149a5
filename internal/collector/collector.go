// Package collector exposes the cached account and hour of power snapshots
// as Prometheus metrics.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mikey0000/ha-electric-kiwi/internal/ektools"
	"github.com/mikey0000/ha-electric-kiwi/pkg/ekapi"
	"github.com/prometheus/client_golang/prometheus"
)

// accountMetric describes one metric derived from the account balance
// snapshot.
type accountMetric struct {
	desc  *prometheus.Desc
	value func(ekapi.AccountBalance) (float64, error)
}

var accountMetrics = []accountMetric{
	{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("ek", "account", "total_running_balance_dollars"),
			"Total running balance of the account in dollars",
			nil, nil,
		),
		value: func(balance ekapi.AccountBalance) (float64, error) {
			return ektools.ParseMoney(balance.TotalRunningBalance)
		},
	},
	{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("ek", "account", "total_current_balance_dollars"),
			"Total current balance of the account in dollars",
			nil, nil,
		),
		value: func(balance ekapi.AccountBalance) (float64, error) {
			return ektools.ParseMoney(balance.TotalAccountBalance)
		},
	},
	{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("ek", "account", "next_billing_timestamp_seconds"),
			"Next billing date, as a unix timestamp",
			nil, nil,
		),
		value: func(balance ekapi.AccountBalance) (float64, error) {
			date, err := ektools.ParseDate(balance.NextBillingDate)
			if err != nil {
				return 0, err
			}
			return float64(date.Unix()), nil
		},
	},
	{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("ek", "hop", "savings_percentage"),
			"Percentage saved through the hour of power",
			nil, nil,
		),
		value: func(balance ekapi.AccountBalance) (float64, error) {
			if len(balance.Connections) == 0 {
				return 0, errors.New("balance contains no connections")
			}
			return ektools.ParsePercentage(balance.Connections[0].HopPercentage)
		},
	},
}

// hopMetric describes one metric derived from the selected hour of power.
type hopMetric struct {
	desc  *prometheus.Desc
	value func(start, end time.Time) float64
}

var hopMetrics = []hopMetric{
	{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("ek", "hop", "start_timestamp_seconds"),
			"Start of the next hour of power, as a unix timestamp",
			nil, nil,
		),
		value: func(start, _ time.Time) float64 { return float64(start.Unix()) },
	},
	{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName("ek", "hop", "end_timestamp_seconds"),
			"End of the next hour of power, as a unix timestamp",
			nil, nil,
		),
		value: func(_, end time.Time) float64 { return float64(end.Unix()) },
	},
}

// AccountPoller notifies the collector of new account balance snapshots.
type AccountPoller interface {
	Register() chan ekapi.AccountBalance
	Unregister(chan ekapi.AccountBalance)
}

// HopPoller notifies the collector of new hour of power selections.
type HopPoller interface {
	Register() chan ekapi.Hop
	Unregister(chan ekapi.Hop)
}

var _ prometheus.Collector = &Collector{}

// Collector serves the most recently received snapshots. Nothing is exported
// until the pollers have completed their first refresh.
type Collector struct {
	Account AccountPoller
	Hop     HopPoller
	Logger  *slog.Logger

	now     func() time.Time
	lock    sync.RWMutex
	balance *ekapi.AccountBalance
	hop     *ekapi.Hop
}

// Run subscribes to both pollers and caches whatever they publish.
func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	accountCh := c.Account.Register()
	defer c.Account.Unregister(accountCh)
	hopCh := c.Hop.Register()
	defer c.Hop.Unregister(hopCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case balance := <-accountCh:
			c.setBalance(balance)
		case hop := <-hopCh:
			c.setHop(hop)
		}
	}
}

func (c *Collector) setBalance(balance ekapi.AccountBalance) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.balance = &balance
}

func (c *Collector) setHop(hop ekapi.Hop) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.hop = &hop
}

// Describe implements the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range accountMetrics {
		ch <- metric.desc
	}
	for _, metric := range hopMetrics {
		ch <- metric.desc
	}
}

// Collect implements the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.balance != nil {
		for _, metric := range accountMetrics {
			value, err := metric.value(*c.balance)
			if err != nil {
				c.Logger.Error("failed to collect account metric", slog.Any("err", err))
				continue
			}
			ch <- prometheus.MustNewConstMetric(metric.desc, prometheus.GaugeValue, value)
		}
	}

	if c.hop != nil {
		start, end, err := ektools.HopWindow(*c.hop, c.timeNow())
		if err != nil {
			c.Logger.Error("failed to collect hour of power metrics", slog.Any("err", err))
			return
		}
		for _, metric := range hopMetrics {
			ch <- prometheus.MustNewConstMetric(metric.desc, prometheus.GaugeValue, metric.value(start, end))
		}
	}
}

func (c *Collector) timeNow() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}
