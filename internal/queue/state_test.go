package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sportstix-client/internal/model"
)

func intp(n int) *int { return &n }

func TestApplyPersonalReplacesSnapshot(t *testing.T) {
	s := Apply(State{}, Personal{
		GameID:               7,
		Status:               model.StatusWaiting,
		Rank:                 intp(12),
		TotalWaiting:         intp(40),
		EstimatedWaitSeconds: intp(360),
	})
	require.Equal(t, model.StatusWaiting, s.Status)
	require.Equal(t, 12, *s.Rank)

	// A later personal message replaces everything, including fields the
	// new message no longer carries.
	s = Apply(s, Personal{GameID: 7, Status: model.StatusEligible, Token: "tok-1"})
	assert.Equal(t, model.StatusEligible, s.Status)
	assert.Equal(t, "tok-1", s.Token)
	assert.Nil(t, s.Rank)
	assert.Nil(t, s.TotalWaiting)
}

func TestApplyPublicOnlyTouchesTotalWhileWaiting(t *testing.T) {
	s := Apply(State{}, Personal{GameID: 7, Status: model.StatusWaiting, Rank: intp(3), TotalWaiting: intp(10), Token: ""})

	s = Apply(s, Public{TotalWaiting: 25})
	assert.Equal(t, model.StatusWaiting, s.Status)
	assert.Equal(t, 3, *s.Rank)
	assert.Equal(t, 25, *s.TotalWaiting)
}

func TestApplyPublicIgnoredOnceEligible(t *testing.T) {
	s := Apply(State{}, Personal{GameID: 7, Status: model.StatusEligible, Token: "tok-9"})

	// A stale broadcast that was queued behind the admission push must not
	// clobber the newer personal state.
	next := Apply(s, Public{TotalWaiting: 99})
	assert.Equal(t, s, next)
}

func TestApplyPublicIgnoredOnUnsetAndError(t *testing.T) {
	assert.Equal(t, State{}, Apply(State{}, Public{TotalWaiting: 5}))

	errState := Apply(State{}, Personal{GameID: 1, Status: model.StatusError})
	assert.Equal(t, errState, Apply(errState, Public{TotalWaiting: 5}))
}

func TestApplyInterleavedSourcesPersonalAlwaysWins(t *testing.T) {
	// Any interleaving of the two sources must leave status/rank/token
	// reflecting the latest personal message, never a public one.
	events := []Event{
		Personal{GameID: 4, Status: model.StatusWaiting, Rank: intp(8), TotalWaiting: intp(20)},
		Public{TotalWaiting: 19},
		Public{TotalWaiting: 18},
		Personal{GameID: 4, Status: model.StatusWaiting, Rank: intp(2), TotalWaiting: intp(6)},
		Public{TotalWaiting: 5},
		Personal{GameID: 4, Status: model.StatusEligible, Token: "tok-final"},
		Public{TotalWaiting: 50},
		Public{TotalWaiting: 51},
	}
	var s State
	for _, ev := range events {
		s = Apply(s, ev)
	}
	assert.Equal(t, model.StatusEligible, s.Status)
	assert.Equal(t, "tok-final", s.Token)
	assert.Nil(t, s.Rank)
	assert.Nil(t, s.TotalWaiting)
}

func TestApplyReset(t *testing.T) {
	s := Apply(State{}, Personal{GameID: 4, Status: model.StatusEligible, Token: "tok"})
	assert.Equal(t, State{}, Apply(s, Reset{}))
}

func TestStoreDispatchNotifiesWatchers(t *testing.T) {
	st := NewStore()
	var seen []model.QueueStatus
	cancel := st.Watch(func(s State) { seen = append(seen, s.Status) })

	st.Dispatch(Personal{GameID: 1, Status: model.StatusWaiting, Rank: intp(1)})
	st.Dispatch(Personal{GameID: 1, Status: model.StatusEligible, Token: "t"})
	cancel()
	st.Dispatch(Reset{})

	require.Equal(t, []model.QueueStatus{model.StatusWaiting, model.StatusEligible}, seen)
	assert.Equal(t, State{}, st.State())
}

func TestStoreConcurrentDispatchesNotifyInApplyOrder(t *testing.T) {
	st := NewStore()
	var mu sync.Mutex
	var seen []State
	cancel := st.Watch(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer cancel()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			st.Dispatch(Personal{GameID: 1, Status: model.StatusWaiting, Rank: intp(rank)})
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	// The last notification delivered must carry the state the store
	// actually settled on; a stale trailing notification would let the UI
	// render an outdated rank forever.
	assert.Equal(t, st.State(), seen[len(seen)-1])
}

func TestStoreConnectedFlagIndependentOfState(t *testing.T) {
	st := NewStore()
	st.SetConnected(true)
	st.Dispatch(Reset{})
	assert.True(t, st.Connected(), "reset of the ticket must not clear connectivity")
}
