package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(registrations.WithLabelValues("register", "SOLD_OUT"))
	TrackRegistration("register", "SOLD_OUT")
	TrackRegistration("register", "SOLD_OUT")
	assert.Equal(t, before+2, testutil.ToFloat64(registrations.WithLabelValues("register", "SOLD_OUT")))

	before = testutil.ToFloat64(checkIns.WithLabelValues("GRANTED"))
	TrackCheckIn("GRANTED")
	assert.Equal(t, before+1, testutil.ToFloat64(checkIns.WithLabelValues("GRANTED")))

	before = testutil.ToFloat64(notifications.WithLabelValues("sent"))
	TrackNotification("sent")
	assert.Equal(t, before+1, testutil.ToFloat64(notifications.WithLabelValues("sent")))
}

func TestObserveOperation(t *testing.T) {
	ObserveOperation("check_in", 0.004)
	assert.Equal(t, 1, testutil.CollectAndCount(txDuration, "ticketing_atomic_operation_seconds"))
}
