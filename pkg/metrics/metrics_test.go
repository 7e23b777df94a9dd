package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })

	StorageOperations.WithLabelValues("save", "ok").Inc()
	StoreUp.Set(1)

	n, err := testutil.GatherAndCount(reg, "appcenter_storage_operations_total", "appcenter_store_up")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// registering twice on the same registry is a programming error
	require.Panics(t, func() { RegisterCollectors(reg) })
}
