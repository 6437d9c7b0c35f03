package chatlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/showdown"
)

func newTestPlugin(t *testing.T) *Plugin {
	t.Helper()
	p, err := New(filepath.Join(t.TempDir(), "chatlog.db"))
	require.NoError(t, err)
	return p
}

func TestMatchChatAndPM(t *testing.T) {
	p := newTestPlugin(t)
	ctx := context.Background()

	chat := showdown.Parse("lobby", "|c:|1636113111| bob|hello")
	ok, err := p.Match(ctx, chat)
	require.NoError(t, err)
	assert.True(t, ok)

	pm := showdown.Parse("", "|pm| alice| testbot|hi")
	ok, err = p.Match(ctx, pm)
	require.NoError(t, err)
	assert.True(t, ok)

	join := showdown.Parse("lobby", "|j| bob")
	ok, err = p.Match(ctx, join)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResponsePersistsChat(t *testing.T) {
	p := newTestPlugin(t)
	ctx := context.Background()

	m := showdown.Parse("lobby", "|c:|1636113111|@bob|hello world")
	resp, err := p.Response(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "", resp)

	entries, err := p.Recent(ctx, "lobby", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].UserID)
	assert.Equal(t, "@bob", entries[0].UserName)
	assert.Equal(t, "hello world", entries[0].Text)
	assert.Equal(t, int64(1636113111), entries[0].SentAt.Unix())
}

func TestResponsePersistsPM(t *testing.T) {
	p := newTestPlugin(t)
	ctx := context.Background()

	m := showdown.Parse("", "|pm| alice| testbot|secret hello")
	_, err := p.Response(ctx, m)
	require.NoError(t, err)

	entries, err := p.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pm", entries[0].Kind)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, "testbot", entries[0].Receiver)
}

func TestRecentOrderAndLimit(t *testing.T) {
	p := newTestPlugin(t)
	ctx := context.Background()

	for _, line := range []string{
		"|c:|100| bob|first",
		"|c:|200| bob|second",
		"|c:|300| bob|third",
	} {
		_, err := p.Response(ctx, showdown.Parse("lobby", line))
		require.NoError(t, err)
	}

	entries, err := p.Recent(ctx, "lobby", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Text)
	assert.Equal(t, "second", entries[1].Text)
}

func TestScrollbackAccess(t *testing.T) {
	p := newTestPlugin(t)
	// 历史回放也要入库
	assert.True(t, p.ScrollbackAccess())
}

func TestResponseIgnoresMessagesWithoutUser(t *testing.T) {
	p := newTestPlugin(t)

	m := &showdown.Message{Kind: showdown.KindChat, Room: "lobby", Text: "orphan"}
	_, err := p.Response(context.Background(), m)
	require.NoError(t, err)

	entries, err := p.Recent(context.Background(), "lobby", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
