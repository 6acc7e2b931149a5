package ektools

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/clambin/go-common/http/roundtripper"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstrumentedClient(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "account",
			path: "/account/123456/running_balance/515363/",
			want: `
# HELP ek_monitor_http_requests_total total number of http requests
# TYPE ek_monitor_http_requests_total counter
ek_monitor_http_requests_total{code="404",method="GET",path="/account"} 1
`,
		},
		{
			name: "hop",
			path: "/hop/123456/515363/",
			want: `
# HELP ek_monitor_http_requests_total total number of http requests
# TYPE ek_monitor_http_requests_total counter
ek_monitor_http_requests_total{code="404",method="GET",path="/hop"} 1
`,
		},
		{
			name: "other",
			path: "/",
			want: `
# HELP ek_monitor_http_requests_total total number of http requests
# TYPE ek_monitor_http_requests_total counter
ek_monitor_http_requests_total{code="404",method="GET",path="/"} 1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewAPICallMetrics("ek", "monitor")
			finalRoundTripper := roundtripper.RoundTripperFunc(func(request *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(&bytes.Buffer{})}, nil
			})

			c := NewInstrumentedClient(finalRoundTripper, m)

			_, err := c.Get("http://example.com" + tt.path)
			require.NoError(t, err)

			assert.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(tt.want), "ek_monitor_http_requests_total"))
		})
	}
}
