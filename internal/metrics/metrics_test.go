// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RequestsTotal.WithLabelValues(OutcomeSuccess).Inc()
	m.RequestsTotal.WithLabelValues(OutcomeBusy).Add(2)
	m.FragmentsTotal.Add(3)
	m.StaleUpdates.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(OutcomeBusy)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FragmentsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleUpdates))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.FragmentsTotal.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "petalmind_fragments_total 1")
	assert.Contains(t, string(body), "petalmind_streams_in_flight 0")
}
