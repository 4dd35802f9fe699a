// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package accountcloner

import "github.com/prometheus/client_golang/prometheus"

// cloneMetrics counts clone outcomes by kind and reason, plus two
// operational counters: fetch retries (how much the freshness loop is
// churning) and listener-registry protocol violations (a clone request
// completed with no registered listener, which should never happen).
type cloneMetrics struct {
	clones      *prometheus.CounterVec
	unclonable  *prometheus.CounterVec
	fetchRetry  prometheus.Counter
	listenerErr prometheus.Counter
}

func newCloneMetrics(reg prometheus.Registerer) *cloneMetrics {
	m := &cloneMetrics{
		clones: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accountcloner",
			Name:      "clones_total",
			Help:      "Number of accounts successfully materialized into the local bank, by kind.",
		}, []string{"kind"}),
		unclonable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accountcloner",
			Name:      "unclonable_total",
			Help:      "Number of accounts freshly decided unclonable, by reason.",
		}, []string{"reason"}),
		fetchRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accountcloner",
			Name:      "fetch_retries_total",
			Help:      "Number of fetch-with-freshness retry attempts beyond the first.",
		}),
		listenerErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accountcloner",
			Name:      "listener_registry_violations_total",
			Help:      "Number of completed clone requests that found no registered listener.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.clones, m.unclonable, m.fetchRetry, m.listenerErr)
	}
	return m
}

func (m *cloneMetrics) observeClone(kind string) {
	if m == nil {
		return
	}
	m.clones.WithLabelValues(kind).Inc()
}

func (m *cloneMetrics) observeUnclonable(reason string) {
	if m == nil {
		return
	}
	m.unclonable.WithLabelValues(reason).Inc()
}

func (m *cloneMetrics) observeFetchRetry() {
	if m == nil {
		return
	}
	m.fetchRetry.Inc()
}

func (m *cloneMetrics) observeListenerViolation() {
	if m == nil {
		return
	}
	m.listenerErr.Inc()
}
