package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Connections(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.SetConnections(2, 5)

	expected := `
		# HELP chat_connections Open chat connections by handshake state.
		# TYPE chat_connections gauge
		chat_connections{state="authenticated"} 5
		chat_connections{state="pending"} 2
	`
	req.NoError(testutil.CollectAndCompare(metrics.Connections, strings.NewReader(expected)))
}

func TestMetrics_Relayed_Defaults_Unknown_Language(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.Relayed("")
	metrics.Relayed("en")
	metrics.Relayed("en")

	req.Equal(1.0, testutil.ToFloat64(metrics.MessagesRelayed.WithLabelValues("und")))
	req.Equal(2.0, testutil.ToFloat64(metrics.MessagesRelayed.WithLabelValues("en")))
}

func TestMetrics_Deliveries(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.Delivered(3, 1)
	metrics.ObservePersist(20 * time.Millisecond)

	req.Equal(3.0, testutil.ToFloat64(metrics.Deliveries.WithLabelValues("ok")))
	req.Equal(1.0, testutil.ToFloat64(metrics.Deliveries.WithLabelValues("failed")))
	req.Equal(1, testutil.CollectAndCount(metrics.PersistDuration))
}

func TestMetrics_Nil_Is_Noop(t *testing.T) {
	var metrics *Metrics
	require.NotPanics(t, func() {
		metrics.SetConnections(1, 1)
		metrics.Relayed("fr")
		metrics.Rejected("empty-content")
		metrics.Delivered(1, 0)
		metrics.ObservePersist(time.Second)
		metrics.Dropped("indexer")
		metrics.SetProcess(1.5, 1024)
	})
}
