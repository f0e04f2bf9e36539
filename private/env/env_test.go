// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package env_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-extn/private/env"
)

func TestMetricsValidate(t *testing.T) {
	assert.NoError(t, (&env.Metrics{}).Validate())
	assert.NoError(t, (&env.Metrics{Prometheus: "127.0.0.1:30455"}).Validate())
	assert.NoError(t, (&env.Metrics{Prometheus: ":30455"}).Validate())
	assert.Error(t, (&env.Metrics{Prometheus: "localhost"}).Validate())
}

func TestServePrometheus(t *testing.T) {
	// Reserve a free port.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extn_packets_total",
		Help: "Test counter.",
	})
	reg.MustRegister(c)
	c.Add(3)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := env.Metrics{Prometheus: addr}
	done := make(chan error, 1)
	go func() {
		done <- cfg.ServePrometheus(ctx, reg)
	}()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(raw)
		return true
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "extn_packets_total 3")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServePrometheusDisabled(t *testing.T) {
	cfg := env.Metrics{}
	assert.NoError(t, cfg.ServePrometheus(context.Background(), prometheus.NewRegistry()))
}
