package showdown

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCookieStore 内存 CookieStore，测试用
type memoryCookieStore struct {
	cookies []*http.Cookie
	saved   int
}

func (s *memoryCookieStore) Load() ([]*http.Cookie, error) {
	return s.cookies, nil
}

func (s *memoryCookieStore) Save(cookies []*http.Cookie) error {
	s.cookies = cookies
	s.saved++
	return nil
}

func TestDecodeLoginBody(t *testing.T) {
	// 正常响应以 ']' 哨兵字符开头
	result, err := decodeLoginBody([]byte(`]{"loggedin":true,"username":"testbot","assertion":"tok"}`))
	require.NoError(t, err)
	assert.True(t, result.LoggedIn)
	assert.Equal(t, "testbot", result.Username)
	assert.Equal(t, "tok", result.Assertion)

	// 没有哨兵字符也能解码
	result, err = decodeLoginBody([]byte(`{"loggedin":false}`))
	require.NoError(t, err)
	assert.False(t, result.LoggedIn)

	_, err = decodeLoginBody([]byte(`]not json`))
	assert.Error(t, err)
}

func TestPasswordLoginSendsTrnAndJoins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "testbot", r.Form.Get("name"))
		assert.Equal(t, "secret", r.Form.Get("pass"))
		assert.Equal(t, "4|deadbeef", r.Form.Get("challstr"))

		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc"})
		w.Write([]byte(`]{"loggedin":true,"username":"testbot","assertion":"tok"}`))
	}))
	defer server.Close()

	store := &memoryCookieStore{}
	c := newTestClient(t,
		WithLoginURL(server.URL),
		WithHTTPClient(server.Client()),
		WithCookieStore(store),
		WithRooms("lobby", "techcode"),
	)

	require.NoError(t, c.login.logIn(context.Background(), "4|deadbeef"))

	out := <-c.queue()
	assert.Equal(t, "/trn testbot,0,tok", out.text)

	join1 := <-c.queue()
	assert.Equal(t, "/join lobby", join1.text)
	join2 := <-c.queue()
	assert.Equal(t, "/join techcode", join2.text)

	// 登录响应携带的 Cookie 被持久化
	assert.Equal(t, 1, store.saved)
	require.Len(t, store.cookies, 1)
	assert.Equal(t, "sid", store.cookies[0].Name)
}

func TestPasswordLoginRetriesThenFails(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t,
		WithLoginURL(server.URL),
		WithHTTPClient(server.Client()),
		WithCookieStore(&memoryCookieStore{}),
		WithLoginRetry(3, time.Millisecond),
	)

	err := c.login.logIn(context.Background(), "4|deadbeef")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, 3, hits)
}

func TestLoginEmptyAssertion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`]{"loggedin":false,"assertion":""}`))
	}))
	defer server.Close()

	c := newTestClient(t,
		WithLoginURL(server.URL),
		WithHTTPClient(server.Client()),
		WithCookieStore(&memoryCookieStore{}),
	)

	err := c.login.logIn(context.Background(), "4|deadbeef")
	assert.ErrorIs(t, err, ErrNoAssertion)
}

func TestCookieLoginSkipsPassword(t *testing.T) {
	var loginHits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upkeep":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "4|deadbeef", r.Form.Get("challstr"))
			w.Write([]byte(`]{"loggedin":true,"username":"testbot","assertion":"cookietok"}`))
		case "/login":
			loginHits++
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	store := &memoryCookieStore{
		cookies: []*http.Cookie{{Name: "sid", Value: "abc"}},
	}
	c := newTestClient(t,
		WithLoginURL(server.URL),
		WithHTTPClient(server.Client()),
		WithCookieStore(store),
	)

	require.NoError(t, c.login.logIn(context.Background(), "4|deadbeef"))
	assert.Equal(t, 0, loginHits)

	out := <-c.queue()
	assert.Equal(t, "/trn testbot,0,cookietok", out.text)
}

func TestStaleCookiesFallBackToPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upkeep":
			w.Write([]byte(`]{"loggedin":false}`))
		case "/login":
			w.Write([]byte(`]{"loggedin":true,"assertion":"passtok"}`))
		}
	}))
	defer server.Close()

	store := &memoryCookieStore{
		cookies: []*http.Cookie{{Name: "sid", Value: "expired"}},
	}
	c := newTestClient(t,
		WithLoginURL(server.URL),
		WithHTTPClient(server.Client()),
		WithCookieStore(store),
	)

	require.NoError(t, c.login.logIn(context.Background(), "4|deadbeef"))

	out := <-c.queue()
	assert.Equal(t, "/trn testbot,0,passtok", out.text)
}

func TestLoginResetsBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`]{"loggedin":true,"assertion":"tok"}`))
	}))
	defer server.Close()

	c := newTestClient(t,
		WithLoginURL(server.URL),
		WithHTTPClient(server.Client()),
		WithCookieStore(&memoryCookieStore{}),
	)

	// 模拟若干个失败周期后的退避
	c.backoff.Store(int64(time.Minute))

	require.NoError(t, c.login.logIn(context.Background(), "4|deadbeef"))
	assert.Equal(t, int64(c.config.ReconnectInitialDelay), c.backoff.Load())
}

func TestChallstrPluginEmptyChallstr(t *testing.T) {
	c := newTestClient(t)
	p := &challstrPlugin{client: c}

	m := Parse("", "|challstr|")
	require.Equal(t, KindChallstr, m.Kind)

	_, err := p.Response(context.Background(), m)
	assert.ErrorIs(t, err, ErrEmptyChallstr)
}

func TestChallstrPluginIgnoresDuplicate(t *testing.T) {
	c := newTestClient(t)
	c.loggingIn.Store(true)
	p := &challstrPlugin{client: c}

	// 登录进行中收到的重复 challstr 被忽略，不触发第二次登录
	resp, err := p.Response(context.Background(), Parse("", "|challstr|4|deadbeef"))
	require.NoError(t, err)
	assert.Equal(t, "", resp)
}
