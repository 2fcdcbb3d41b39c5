package safe_close

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeCloseWaitsForWorkers(t *testing.T) {
	sc := NewSafeClose()
	var finished int32

	for i := 0; i < 3; i++ {
		sc.Attach(func(done func(), closeSignal <-chan struct{}) {
			defer done()
			<-closeSignal
			atomic.AddInt32(&finished, 1)
		})
	}

	first := errors.New("first")
	sc.SendCloseSignal(first)
	sc.SendCloseSignal(errors.New("second"))

	err := sc.WaitClosed()
	assert.Equal(t, int32(3), atomic.LoadInt32(&finished))
	assert.Equal(t, first, err)
}

func TestSafeCloseNilError(t *testing.T) {
	sc := NewSafeClose()
	sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		done()
		<-closeSignal
	})
	sc.SendCloseSignal(nil)
	assert.NoError(t, sc.WaitClosed())

	select {
	case <-sc.CloseSignal():
	default:
		t.Fatal("close signal not delivered")
	}
}
