package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncrementAPICallLabelsOutcome(t *testing.T) {
	before := testutil.ToFloat64(APICalls.WithLabelValues("gemini", "success"))
	beforeErr := testutil.ToFloat64(APICalls.WithLabelValues("gemini", "error"))

	IncrementAPICall("gemini", true)
	IncrementAPICall("gemini", false)
	IncrementAPICall("gemini", false)

	assert.Equal(t, before+1, testutil.ToFloat64(APICalls.WithLabelValues("gemini", "success")))
	assert.Equal(t, beforeErr+2, testutil.ToFloat64(APICalls.WithLabelValues("gemini", "error")))
}

func TestRecordPersist(t *testing.T) {
	before := testutil.ToFloat64(Persisted.WithLabelValues("skipped"))
	RecordPersist("skipped")
	assert.Equal(t, before+1, testutil.ToFloat64(Persisted.WithLabelValues("skipped")))
}
