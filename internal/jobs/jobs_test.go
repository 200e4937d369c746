package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	n    int
	err  error
	seen time.Time
}

func (f *fakeOrders) ReleaseDue(_ context.Context, now time.Time) (int, error) {
	f.seen = now
	return f.n, f.err
}

type fakeOffers struct {
	n     int64
	calls int
}

func (f *fakeOffers) ExpireDue(time.Time) (int64, error) {
	f.calls++
	return f.n, nil
}

func TestRunOnce(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	orders, offers := &fakeOrders{n: 2}, &fakeOffers{n: 3}
	r := NewRunner(orders, offers)
	r.Now = func() time.Time { return at }

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Released: 2, Expired: 3}, res)
	assert.Equal(t, at, orders.seen)
}

func TestRunOnceKeepsGoingAfterFailure(t *testing.T) {
	orders, offers := &fakeOrders{err: errors.New("db down")}, &fakeOffers{n: 1}
	res, err := NewRunner(orders, offers).RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, offers.calls)
	assert.EqualValues(t, 1, res.Expired)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := NewRunner(&fakeOrders{}, &fakeOffers{})
	assert.Error(t, r.Start("every now and then"))
	r.Stop()

	require.NoError(t, r.Start("@every 1h"))
	r.Stop()
}
