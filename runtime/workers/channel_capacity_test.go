package workers

import (
	"testing"

	"guild-chat/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Sample(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	queue := make(chan int, 8)
	queue <- 1
	queue <- 2

	worker := NewChannelCapacityWorker(testLog, []NamedChannel{
		{Name: "queue", Channel: queue},
		{Name: "not-a-channel", Channel: 42},
	}, metrics, 0)

	worker.sample()

	req.Equal(2.0, testutil.ToFloat64(metrics.QueueLength.WithLabelValues("queue")))
	req.Equal(8.0, testutil.ToFloat64(metrics.QueueCapacity.WithLabelValues("queue")))
	req.Equal(1, testutil.CollectAndCount(metrics.QueueLength))
}
