package ektools

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
)

// NewInstrumentedClient wraps rt so every API call is measured by m.
func NewInstrumentedClient(rt http.RoundTripper, m metrics.RequestMetrics) *http.Client {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &http.Client{
		Transport: roundtripper.New(
			roundtripper.WithRequestMetrics(m),
			roundtripper.WithRoundTripper(rt),
		),
	}
}

// NewAPICallMetrics returns request metrics for calls to the Electric Kiwi
// API. Per-customer path segments are collapsed to keep the label
// cardinality down.
func NewAPICallMetrics(namespace, subsystem string) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace: namespace,
		Subsystem: subsystem,
		LabelValues: func(request *http.Request, statusCode int) (string, string, string) {
			path := request.URL.Path
			for _, prefix := range []string{"/account/", "/hop/", "/session/"} {
				if strings.HasPrefix(path, prefix) {
					path = strings.TrimSuffix(prefix, "/")
					break
				}
			}
			return request.Method, path, strconv.Itoa(statusCode)
		},
	})
}
