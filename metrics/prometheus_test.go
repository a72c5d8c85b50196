package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, "2xx", classifyStatus(204))
	assert.Equal(t, "4xx", classifyStatus(404))
	assert.Equal(t, "5xx", classifyStatus(502))
	assert.Equal(t, "unknown", classifyStatus(99))
}

func TestRecordImport(t *testing.T) {
	before := testutil.ToFloat64(importRecordsTotal.WithLabelValues("error"))
	RecordImport(2, 1, 0, 3)
	assert.Equal(t, before+3, testutil.ToFloat64(importRecordsTotal.WithLabelValues("error")))
}

func TestImportProgressSnapshot(t *testing.T) {
	var p ImportProgress
	p.Received.Add(3)
	p.Imported.Add(2)
	p.Errored.Add(1)
	snap := p.Snapshot()
	assert.Equal(t, 3, snap.Received)
	assert.Equal(t, 2, snap.Imported)
	assert.Equal(t, 1, snap.Errored)
}
