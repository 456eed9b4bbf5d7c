package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveProviderCall_Outcomes(t *testing.T) {
	before := func(outcome string) float64 {
		return testutil.ToFloat64(ProviderRequests.WithLabelValues("metrics-test", "profile", outcome))
	}
	ok, http500, failed := before("ok"), before("http_500"), before("error")

	ObserveProviderCall("metrics-test", "profile", 200, nil, time.Millisecond)
	ObserveProviderCall("metrics-test", "profile", 500, nil, time.Millisecond)
	ObserveProviderCall("metrics-test", "profile", 0, errors.New("timeout"), time.Millisecond)

	require.Equal(t, ok+1, before("ok"))
	require.Equal(t, http500+1, before("http_500"))
	require.Equal(t, failed+1, before("error"))
}
