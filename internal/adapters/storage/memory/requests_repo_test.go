package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"participation-service/internal/domain/requests"
)

func newReq(id, requester, event string, st requests.Status, at time.Time) requests.Request {
	return requests.Request{ID: id, RequesterID: requester, EventID: event, Status: st, CreatedAt: at, UpdatedAt: at}
}

func seed(t *testing.T, repo requests.Repository, items ...requests.Request) {
	t.Helper()
	for _, it := range items {
		err := repo.InEventTx(context.Background(), it.EventID, func(tx requests.EventTx) error {
			return tx.Insert(context.Background(), it)
		})
		require.NoError(t, err)
	}
}

func TestRequestRepo_InEventTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepo()
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	seed(t, repo, newReq("r1", "u1", "e1", requests.StatusPending, t0))

	boom := errors.New("boom")
	err := repo.InEventTx(ctx, "e1", func(tx requests.EventTx) error {
		require.NoError(t, tx.SetStatus(ctx, []string{"r1"}, requests.StatusConfirmed, t0))
		require.NoError(t, tx.Insert(ctx, newReq("r2", "u2", "e1", requests.StatusPending, t0)))

		// La tx ve sus propias escrituras.
		n, err := tx.CountConfirmed(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, requests.StatusPending, got.Status)

	_, err = repo.GetByID(ctx, "r2")
	require.ErrorIs(t, err, requests.ErrNotFound)
}

func TestRequestRepo_Insert_RejectsSecondActiveRequest(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepo()
	t0 := time.Now()
	seed(t, repo, newReq("r1", "u1", "e1", requests.StatusCanceled, t0))
	seed(t, repo, newReq("r2", "u1", "e1", requests.StatusPending, t0))

	err := repo.InEventTx(ctx, "e1", func(tx requests.EventTx) error {
		return tx.Insert(ctx, newReq("r3", "u1", "e1", requests.StatusPending, t0))
	})
	require.ErrorIs(t, err, requests.ErrDuplicateRequest)

	active, err := repo.GetActive(ctx, "u1", "e1")
	require.NoError(t, err)
	require.Equal(t, "r2", active.ID)
}

func TestRequestRepo_GetByIDs_ScopedToEventAndOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepo()
	t0 := time.Now()
	seed(t, repo,
		newReq("a", "u1", "e1", requests.StatusPending, t0),
		newReq("b", "u2", "e1", requests.StatusPending, t0),
		newReq("x", "u3", "e2", requests.StatusPending, t0),
	)

	err := repo.InEventTx(ctx, "e1", func(tx requests.EventTx) error {
		got, err := tx.GetByIDs(ctx, []string{"b", "x", "a", "missing"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "b", got[0].ID)
		require.Equal(t, "a", got[1].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestRequestRepo_RejectPending_OnlyTouchesPending(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepo()
	t0 := time.Now()
	seed(t, repo,
		newReq("p1", "u1", "e1", requests.StatusPending, t0),
		newReq("c1", "u2", "e1", requests.StatusConfirmed, t0),
		newReq("p2", "u3", "e2", requests.StatusPending, t0),
	)

	err := repo.InEventTx(ctx, "e1", func(tx requests.EventTx) error {
		n, err := tx.RejectPending(ctx, t0)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)

	p1, _ := repo.GetByID(ctx, "p1")
	c1, _ := repo.GetByID(ctx, "c1")
	p2, _ := repo.GetByID(ctx, "p2")
	require.Equal(t, requests.StatusRejected, p1.Status)
	require.Equal(t, requests.StatusConfirmed, c1.Status)
	require.Equal(t, requests.StatusPending, p2.Status)
}

func TestRequestRepo_Listings(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepo()
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	seed(t, repo,
		newReq("late", "u1", "e2", requests.StatusConfirmed, t0.Add(time.Hour)),
		newReq("early", "u1", "e1", requests.StatusConfirmed, t0),
		newReq("other", "u2", "e1", requests.StatusPending, t0.Add(time.Minute)),
	)

	mine, err := repo.ListByRequester(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"early", "late"}, ids(mine))

	byEvent, err := repo.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, []string{"early", "other"}, ids(byEvent))

	counts, err := repo.CountConfirmedByEvents(ctx, []string{"e1", "e2", "e3"})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"e1": 1, "e2": 1}, counts)
}

func TestRequestRepo_InEventTx_SerializesPerEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepo()
	const limit = 3

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.InEventTx(ctx, "e1", func(tx requests.EventTx) error {
				n, err := tx.CountConfirmed(ctx)
				if err != nil {
					return err
				}
				if n >= limit {
					return requests.ErrLimitReached
				}
				id := string(rune('a' + i))
				return tx.Insert(ctx, newReq(id, id, "e1", requests.StatusConfirmed, time.Now()))
			})
		}(i)
	}
	wg.Wait()

	n, err := repo.CountConfirmed(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, limit, n)
}

func ids(items []requests.Request) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
