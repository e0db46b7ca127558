package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat/types"
)

func TestMemoryStoreSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)

	session := types.NewSession("s1")
	session.Append(types.HumanMessage("hi"), types.AIMessage("hello"))
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.History, got.History)
	assert.Equal(t, types.SessionStateIdle, got.State)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	session := types.NewSession("s1")
	session.Template = &types.PromptTemplate{System: "sys"}
	require.NoError(t, store.Save(ctx, session))

	session.Append(types.HumanMessage("not saved"))
	session.Template.System = "changed"

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.History)
	assert.Equal(t, "sys", got.Template.System)

	got.Append(types.HumanMessage("also not saved"))
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.History)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(20 * time.Millisecond)

	require.NoError(t, store.Save(ctx, types.NewSession("s1")))
	time.Sleep(60 * time.Millisecond)

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestDecodeSessionFillsEmptySlices(t *testing.T) {
	session, err := decodeSession([]byte(`{"id":"s1","state":"idle"}`))
	require.NoError(t, err)
	assert.NotNil(t, session.History)
	assert.NotNil(t, session.Documents)
	assert.Equal(t, "pdfchat:session:s1", sessionKey(session.ID))

	_, err = decodeSession([]byte(`{`))
	assert.Error(t, err)
}

func TestNewSessionStoreUnknownKind(t *testing.T) {
	_, err := NewSessionStore(context.Background(), "disk", "", time.Minute)
	assert.Error(t, err)

	store, err := NewSessionStore(context.Background(), "memory", "", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}
