package cscall

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOperationCounter счетчик операций растет по паре операция/результат
func TestOperationCounter(t *testing.T) {
	t.Run("успешный набор", func(t *testing.T) {
		ctx := context.Background()
		radio := newMockRadio()
		ctl := newTestControl(radio)

		dialOK := testutil.ToFloat64(metricOperations.WithLabelValues("Dial", "ok"))
		gsmOK := testutil.ToFloat64(metricOperations.WithLabelValues("DialGsm", "ok"))

		require.NoError(t, ctl.Dial(ctx, CallInfo{SlotID: 0, Number: "5550101"}))

		assert.Equal(t, dialOK+1,
			testutil.ToFloat64(metricOperations.WithLabelValues("Dial", "ok")))
		assert.Equal(t, gsmOK+1,
			testutil.ToFloat64(metricOperations.WithLabelValues("DialGsm", "ok")))
	})

	t.Run("отказ по потолку ветвей", func(t *testing.T) {
		ctx := context.Background()
		radio := newMockRadio()
		ctl := newTestControl(radio)
		seedConnection(ctl, "1111111", 1, CallStatusActive)
		seedConnection(ctl, "2222222", 2, CallStatusHolding)

		before := testutil.ToFloat64(metricOperations.WithLabelValues("Dial", "CallCountExceeded"))

		err := ctl.Dial(ctx, CallInfo{SlotID: 0, Number: "5550101"})
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeCallCountExceeded))

		assert.Equal(t, before+1,
			testutil.ToFloat64(metricOperations.WithLabelValues("Dial", "CallCountExceeded")))
	})
}
