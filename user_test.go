package showdown

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Zarel", "zarel"},
		{"Some User!", "someuser"},
		{"user-123", "user123"},
		{"ポケモン", ""},
		{"", ""},
		{"  spaces  ", "spaces"},
		{"MiXeD CaSe 42", "mixedcase42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToID(tt.in), "ToID(%q)", tt.in)
	}
}

func TestIsRank(t *testing.T) {
	for _, r := range []rune{'&', '#', '★', '@', '%', '§', '*', '☆', '+', '^', ' ', '!', '‽'} {
		assert.True(t, IsRank(r), "rank %q", r)
	}
	for _, r := range []rune{'a', '0', '-', '~'} {
		assert.False(t, IsRank(r), "rank %q", r)
	}
}

func TestParseUser(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		withStatus bool
		want       User
	}{
		{
			name:       "rank and name",
			in:         "@Mod User",
			withStatus: true,
			want:       User{ID: "moduser", Name: "Mod User", Rank: '@'},
		},
		{
			name:       "regular user with space rank",
			in:         " bob",
			withStatus: true,
			want:       User{ID: "bob", Name: "bob", Rank: ' '},
		},
		{
			name:       "missing leading space",
			in:         "bob",
			withStatus: true,
			want:       User{ID: "bob", Name: "bob", Rank: ' '},
		},
		{
			name:       "away with status",
			in:         "+bar@!brb",
			withStatus: true,
			want:       User{ID: "bar", Name: "bar", Rank: '+', Status: "brb", Away: true},
		},
		{
			name:       "away without status text",
			in:         "@foo@!",
			withStatus: true,
			want:       User{ID: "foo", Name: "foo", Rank: '@', Away: true},
		},
		{
			name:       "status without away",
			in:         "%quux@busy",
			withStatus: true,
			want:       User{ID: "quux", Name: "quux", Rank: '%', Status: "busy"},
		},
		{
			name:       "status ignored when disabled",
			in:         " bob@!brb",
			withStatus: false,
			want:       User{ID: "bobbrb", Name: "bob@!brb", Rank: ' '},
		},
		{
			name:       "unicode rank",
			in:         "★player",
			withStatus: true,
			want:       User{ID: "player", Name: "player", Rank: '★'},
		},
		{
			name:       "empty",
			in:         "",
			withStatus: true,
			want:       User{ID: "", Name: "", Rank: ' '},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseUser(tt.in, tt.withStatus))
		})
	}
}

func TestUserString(t *testing.T) {
	assert.Equal(t, "@foo", NewUser("foo", '@', "", false).String())
	assert.Equal(t, "+bar@!brb", NewUser("bar", '+', "brb", true).String())
	assert.Equal(t, " baz@busy", NewUser("baz", ' ', "busy", false).String())
	assert.Equal(t, "%quux@!", NewUser("quux", '%', "", true).String())
}

func TestUserStringRoundTrip(t *testing.T) {
	for _, s := range []string{"@foo", "+bar@!brb", " baz@busy", "★player"} {
		u := parseUser(s, true)
		assert.Equal(t, s, u.String(), "round trip %q", s)
	}
}

func TestUserLess(t *testing.T) {
	admin := NewUser("zadmin", '&', "", false)
	mod := NewUser("amod", '@', "", false)
	voiced := NewUser("voiced", '+', "", false)
	regular := NewUser("alice", ' ', "", false)
	regularAway := NewUser("aaron", ' ', "", true)
	muted := NewUser("noisy", '!', "", false)

	users := []User{muted, regularAway, regular, voiced, mod, admin}
	sort.Slice(users, func(i, j int) bool { return users[i].Less(users[j]) })

	require.Len(t, users, 6)
	// 先按身份权重，同权重在线优先，最后按名字
	assert.Equal(t, "zadmin", users[0].ID)
	assert.Equal(t, "amod", users[1].ID)
	assert.Equal(t, "voiced", users[2].ID)
	assert.Equal(t, "alice", users[3].ID)
	assert.Equal(t, "aaron", users[4].ID)
	assert.Equal(t, "noisy", users[5].ID)
}
