package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goAccount "github.com/MrEthical07/goAccount"
)

type staticSource struct{}

func (staticSource) MetricsSnapshot() goAccount.MetricsSnapshot {
	return goAccount.MetricsSnapshot{
		Counters:   map[goAccount.MetricID]uint64{goAccount.MetricSignupSuccess: 2},
		Histograms: map[goAccount.MetricID][]uint64{},
	}
}

func (staticSource) AuditDropped() uint64 { return 0 }

func TestStartOTelFlushesOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	stop, err := startOTel(&buf, time.Hour, staticSource{})
	require.NoError(t, err)

	require.NoError(t, stop(context.Background()))
	assert.Contains(t, buf.String(), "goaccount_signup_success_total")
}
