package application

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/food-storefront/internal/food/domain"
	"github.com/dmehra2102/food-storefront/pkg/logging"
)

func TestDispatchNotifiesObservers(t *testing.T) {
	s := NewStore(logging.Discard(), domain.NewState(domain.DefaultMenu()))

	var seen []string
	unsubscribe := s.Subscribe(func(st domain.State) { seen = append(seen, st.StatusMessage) })

	_, err := s.Dispatch(domain.OrdersSubscriptionPending{})
	require.NoError(t, err)
	unsubscribe()
	_, err = s.Dispatch(domain.OrdersSubscriptionStopped{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Subscribing to orders..."}, seen)
}

func TestDispatchRejectionKeepsState(t *testing.T) {
	s := NewStore(logging.Discard(), domain.NewState(domain.DefaultMenu()))
	notified := false
	s.Subscribe(func(domain.State) { notified = true })

	before := s.State()
	_, err := s.Dispatch(domain.RemoveFromCart{ID: 3})
	require.ErrorIs(t, err, domain.ErrNotInCart)
	assert.Equal(t, before, s.State())
	assert.False(t, notified)
}

func TestReplacingHandleClosesPrevious(t *testing.T) {
	s := NewStore(logging.Discard(), domain.NewState(nil))

	var firstClosed, secondClosed atomic.Int32
	first := domain.NewHandle(func() { firstClosed.Add(1) })
	second := domain.NewHandle(func() { secondClosed.Add(1) })

	_, err := s.Dispatch(domain.OrdersSubscriptionStarted{Handle: first})
	require.NoError(t, err)
	_, err = s.Dispatch(domain.OrdersSubscriptionStarted{Handle: second})
	require.NoError(t, err)
	assert.EqualValues(t, 1, firstClosed.Load())
	assert.EqualValues(t, 0, secondClosed.Load())

	_, err = s.Dispatch(domain.OrdersSubscriptionStopped{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, secondClosed.Load())
	assert.Nil(t, s.State().Subscription)
}

func TestStateIsACopy(t *testing.T) {
	s := NewStore(logging.Discard(), domain.NewState(domain.DefaultMenu()))
	st := s.State()
	st.Menu[0].Quantity = 0
	assert.Equal(t, 40, s.State().Menu[0].Quantity)
}
