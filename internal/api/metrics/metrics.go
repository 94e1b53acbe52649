// Package metrics defines and registers all custom Prometheus metrics for
// the transfer service. It is the single source of truth for metric names,
// labels, and help strings; everything registers against the default
// registry via promauto, which /metrics serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transfers"

// ── Query metrics ─────────────────────────────────────────────────────────────

// QueriesTotal counts read operations served, cached or not.
// Label:
//   - op: "week" or "stats"
var QueriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Total number of read queries served, by operation.",
	},
	[]string{"op"},
)

// CacheRequestsTotal counts response-cache lookups.
// Label:
//   - result: "hit" (served verbatim from cache) or "miss" (recomputed)
var CacheRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Total number of response cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// CacheFaultsTotal counts swallowed cache I/O failures. The cache is strictly
// an optimization, so a fault never surfaces to the caller, but it should
// show up here.
var CacheFaultsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_faults_total",
		Help:      "Total number of cache read/write failures that were logged and swallowed.",
	},
)

// ── Ingestion metrics ─────────────────────────────────────────────────────────

// IngestWeeksTotal counts weeks committed by ingestion runs.
var IngestWeeksTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_weeks_total",
		Help:      "Total number of weekly batches committed by ingestion runs.",
	},
)

// IngestRecordsTotal counts records classified and committed.
// Label:
//   - owner_type: "govt", "company", or "private"
var IngestRecordsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_records_total",
		Help:      "Total number of transfer records committed, by owner type.",
	},
	[]string{"owner_type"},
)
