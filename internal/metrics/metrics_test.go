package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveMutation(t *testing.T) {
	before := testutil.ToFloat64(treeMutations.WithLabelValues("move", "busy"))

	ObserveMutation("move", "busy", 20*time.Millisecond)
	ObserveMutation("move", "busy", 5*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(treeMutations.WithLabelValues("move", "busy")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(treeMutationDuration), 1)
}

func TestCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(cacheHits.WithLabelValues(KindPage))
	misses := testutil.ToFloat64(cacheMisses.WithLabelValues(KindPage))

	CacheLookup(KindPage, true)
	CacheLookup(KindPage, false)
	CacheLookup(KindPage, false)

	assert.Equal(t, hits+1, testutil.ToFloat64(cacheHits.WithLabelValues(KindPage)))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheMisses.WithLabelValues(KindPage)))
}

func TestAuditAndNodes(t *testing.T) {
	before := testutil.ToFloat64(auditRuns.WithLabelValues(AuditCorrupt))
	AuditRun(AuditCorrupt)
	assert.Equal(t, before+1, testutil.ToFloat64(auditRuns.WithLabelValues(AuditCorrupt)))

	SetTreeNodes(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(treeNodes))
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/books/{id}", "404"))

	ObserveRequest("GET", "/api/books/{id}", 404, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/books/{id}", "404")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpDuration), 1)
}
