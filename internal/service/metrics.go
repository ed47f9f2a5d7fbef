package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aitodo_reconcile_batches_total",
			Help: "Reconcile batches by outcome (committed, rolled_back).",
		},
		[]string{"outcome"},
	)

	reconcilePatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aitodo_reconcile_patches_total",
			Help: "Committed patches by applied kind (create, update, delete, skip).",
		},
		[]string{"kind"},
	)

	translatorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aitodo_translator_calls_total",
			Help: "Command translator calls by outcome (ok, error).",
		},
		[]string{"outcome"},
	)
)
