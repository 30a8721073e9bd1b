package persistent

import (
	"context"
	"testing"

	"github.com/adevtutorials/authors"
	"github.com/adevtutorials/authors/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/buntdb"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *inmem.ActivityStore) {
	t.Helper()

	bunt, err := buntdb.Open(":memory:")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	t.Cleanup(func() {
		_ = bunt.Close()
	})

	activityStore := inmem.NewActivityStore()
	store := &SessionStore{Buntdb: bunt, ActivityStore: &activityStore}
	if !assert.NoError(t, store.CreateIndexes()) {
		t.FailNow()
	}
	return store, &activityStore
}

func TestSessionRegisterAndLookup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store, activityStore := newTestSessionStore(t)

	session, err := store.RegisterNew(ctx, 1, "127.0.0.1", "tester/1.0")
	if !assert.NoError(err) {
		return
	}
	assert.NotEmpty(session.Id)
	assert.NotEmpty(session.Token)
	assert.Equal(authors.UserId(1), session.UserId)

	sel, err := store.ByToken(session.Token)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(session.Id, sel.Id)

	_, err = store.ByToken("missing")
	assert.ErrorIs(err, authors.ErrSessionNotFound)

	logs, err := activityStore.ByUserId(ctx, 1)
	if assert.NoError(err) && assert.NotEmpty(logs) {
		assert.Equal("session_created", logs[0].Name)
	}
}

func TestSessionAcquireAndRefresh(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store, activityStore := newTestSessionStore(t)

	session, err := store.RegisterNew(ctx, 2, "127.0.0.1", "tester/1.0")
	if !assert.NoError(err) {
		return
	}

	refreshed, err := store.AcquireAndRefresh(ctx, session.Token, "10.0.0.1", "tester/2.0")
	if !assert.NoError(err) {
		return
	}
	assert.Equal(session.Id, refreshed.Id)
	assert.Equal("10.0.0.1", refreshed.Ip)
	assert.Equal("tester/2.0", refreshed.UserAgent)
	assert.True(refreshed.ExpiresAt.After(session.LastAccessedAt))

	logs, err := activityStore.ByUserId(ctx, 2)
	if assert.NoError(err) {
		names := make([]string, len(logs))
		for i, l := range logs {
			names[i] = l.Name
		}
		assert.Contains(names, "session_changed_ip")
		assert.Contains(names, "session_changed_user_agent")
	}

	_, err = store.AcquireAndRefresh(ctx, "missing", "10.0.0.1", "tester/2.0")
	assert.ErrorIs(err, authors.ErrSessionNotFound)
}

func TestSessionsScopedToUser(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store, _ := newTestSessionStore(t)

	alice, err := store.RegisterNew(ctx, 1, "127.0.0.1", "tester/1.0")
	if !assert.NoError(err) {
		return
	}
	aliceOther, err := store.RegisterNew(ctx, 1, "10.0.0.1", "tester/1.0")
	if !assert.NoError(err) {
		return
	}
	bob, err := store.RegisterNew(ctx, 2, "127.0.0.2", "tester/1.0")
	if !assert.NoError(err) {
		return
	}

	sessions, err := store.ActiveSessions(alice.Token)
	if !assert.NoError(err) {
		return
	}
	// a token only ever grants a view of its own user's sessions
	if assert.Len(sessions, 2) {
		for _, s := range sessions {
			assert.Equal(authors.UserId(1), s.UserId)
		}
	}

	sessions, err = store.ActiveSessions(bob.Token)
	if assert.NoError(err) && assert.Len(sessions, 1) {
		assert.Equal(bob.Id, sessions[0].Id)
	}

	assert.NoError(store.InvalidateAllExcept(alice.Token))

	_, err = store.ByToken(aliceOther.Token)
	assert.ErrorIs(err, authors.ErrSessionNotFound)
	_, err = store.ByToken(alice.Token)
	assert.NoError(err)
	// bob's session survives alice revoking her other sessions
	_, err = store.ByToken(bob.Token)
	assert.NoError(err)
}

func TestSessionRegisterFailureLeavesNoActivity(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bunt, err := buntdb.Open(":memory:")
	if !assert.NoError(err) {
		t.FailNow()
	}
	activityStore := inmem.NewActivityStore()
	store := &SessionStore{Buntdb: bunt, ActivityStore: &activityStore}
	assert.NoError(store.CreateIndexes())
	assert.NoError(bunt.Close())

	_, err = store.RegisterNew(ctx, 1, "127.0.0.1", "tester/1.0")
	assert.Error(err)

	logs, err := activityStore.ByUserId(ctx, 1)
	assert.NoError(err)
	assert.Empty(logs)
}

func TestSessionInvalidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store, _ := newTestSessionStore(t)

	first, err := store.RegisterNew(ctx, 3, "127.0.0.1", "tester/1.0")
	if !assert.NoError(err) {
		return
	}
	second, err := store.RegisterNew(ctx, 3, "127.0.0.1", "tester/1.0")
	if !assert.NoError(err) {
		return
	}

	assert.NoError(store.InvalidateByAuthToken(first.Token))
	_, err = store.ByToken(first.Token)
	assert.ErrorIs(err, authors.ErrSessionNotFound)

	third, err := store.RegisterNew(ctx, 3, "127.0.0.1", "tester/1.0")
	if !assert.NoError(err) {
		return
	}

	assert.NoError(store.InvalidateAllExcept(second.Token))
	_, err = store.ByToken(third.Token)
	assert.ErrorIs(err, authors.ErrSessionNotFound)
	_, err = store.ByToken(second.Token)
	assert.NoError(err)

	assert.NoError(store.InvalidateById(3, second.Id))
	_, err = store.ByToken(second.Token)
	assert.ErrorIs(err, authors.ErrSessionNotFound)
}
