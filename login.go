package showdown

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// challstrPlugin 处理 challstr：执行质询-响应登录握手。
// 登录中再次收到 challstr 不会并发重复执行；失败后状态复位，
// 后续的 challstr 会重新触发整个流程。
type challstrPlugin struct {
	BasePlugin
	client *Client
}

func (p *challstrPlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindChallstr, nil
}

func (p *challstrPlugin) Response(ctx context.Context, m *Message) (string, error) {
	if m.Challstr == "" {
		return "", ErrEmptyChallstr
	}

	if !p.client.loggingIn.CompareAndSwap(false, true) {
		p.client.log.Warn("登录进行中，忽略重复的 challstr")
		return "", nil
	}

	p.client.log.Info("收到 challstr，开始登录",
		zap.String("username", p.client.config.Username))

	if err := p.client.login.logIn(ctx, m.Challstr); err != nil {
		p.client.loggingIn.Store(false)
		return "", err
	}
	return "", nil
}

// loginResult 登录接口的响应体（去掉哨兵字符后的 JSON）
type loginResult struct {
	LoggedIn  bool   `json:"loggedin"`
	Username  string `json:"username"`
	Assertion string `json:"assertion"`
}

// loginClient 登录握手的 HTTP 协作方。
// 真正的 HTTP 交互走独立的登录端点，不经过长连接本身。
type loginClient struct {
	client *Client
	http   *http.Client
}

// newLoginClient 创建登录客户端
func newLoginClient(c *Client) *loginClient {
	httpc := c.config.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &loginClient{
		client: c,
		http:   httpc,
	}
}

// logIn 执行完整登录流程：先用持久化 Cookie 试探 upkeep，
// 无效再走密码登录；拿到断言后通过长连接发送登录命令，
// 并自动加入配置的房间。
func (l *loginClient) logIn(ctx context.Context, challstr string) error {
	c := l.client

	assertion, ok := l.tryCookies(ctx, challstr)
	if !ok {
		var err error
		assertion, err = l.passwordLogin(ctx, challstr)
		if err != nil {
			return err
		}
	}

	if assertion == "" {
		return ErrNoAssertion
	}

	// 完整成功的连接-登录周期才重置重连退避
	c.resetBackoff()

	if err := c.Send("", fmt.Sprintf("/trn %s,0,%s", c.config.Username, assertion)); err != nil {
		return err
	}
	c.log.Info("登录断言已发送", zap.String("username", c.config.Username))

	for _, room := range c.config.Rooms {
		if err := c.Join(room); err != nil {
			c.log.Warn("自动加入房间失败",
				zap.String("room", room),
				zap.Error(err))
		}
	}
	return nil
}

// tryCookies 用持久化的 Cookie 向 upkeep 接口试探现有会话，
// 仍然有效时直接复用，避免重新认证
func (l *loginClient) tryCookies(ctx context.Context, challstr string) (string, bool) {
	c := l.client

	cookies, err := c.config.CookieStore.Load()
	if err != nil {
		c.log.Warn("读取 Cookie 失败", zap.Error(err))
		return "", false
	}
	if len(cookies) == 0 {
		return "", false
	}
	c.log.Info("发现已保存的 Cookie，尝试复用登录")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", false
	}
	base, err := url.Parse(c.config.LoginURL)
	if err != nil {
		return "", false
	}
	jar.SetCookies(base, cookies)

	httpc := *l.http
	httpc.Jar = jar

	result, respCookies, err := l.post(ctx, &httpc, "/upkeep", url.Values{
		"challstr": {challstr},
	})
	if err != nil {
		c.log.Warn("Cookie 登录请求失败", zap.Error(err))
		return "", false
	}
	if !result.LoggedIn {
		c.log.Info("已保存的 Cookie 失效，改走密码登录")
		return "", false
	}

	if len(respCookies) > 0 {
		if err := c.config.CookieStore.Save(respCookies); err != nil {
			c.log.Warn("保存 Cookie 失败", zap.Error(err))
		}
	}
	c.log.Info("使用 Cookie 登录成功")
	return result.Assertion, true
}

// passwordLogin 用密码登录，固定间隔重试有限次
func (l *loginClient) passwordLogin(ctx context.Context, challstr string) (string, error) {
	c := l.client

	form := url.Values{
		"name":     {c.config.Username},
		"pass":     {c.config.Password},
		"challstr": {challstr},
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.LoginAttempts; attempt++ {
		result, respCookies, err := l.post(ctx, l.http, "/login", form)
		if err == nil {
			if len(respCookies) > 0 {
				if saveErr := c.config.CookieStore.Save(respCookies); saveErr != nil {
					c.log.Warn("保存 Cookie 失败", zap.Error(saveErr))
				}
			}
			return result.Assertion, nil
		}

		lastErr = err
		c.log.Warn("登录请求失败",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.config.LoginAttempts),
			zap.Error(err))

		if attempt == c.config.LoginAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.config.LoginRetryDelay):
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrLoginFailed, c.config.LoginAttempts, lastErr)
}

// post 向登录端点提交表单并解码响应
func (l *loginClient) post(ctx context.Context, httpc *http.Client, path string, form url.Values) (*loginResult, []*http.Cookie, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.client.config.LoginURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("login endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	result, err := decodeLoginBody(body)
	if err != nil {
		return nil, nil, err
	}
	return result, resp.Cookies(), nil
}

// decodeLoginBody 去掉响应体的前导哨兵字符后解码 JSON
func decodeLoginBody(body []byte) (*loginResult, error) {
	if len(body) > 0 && body[0] == ']' {
		body = body[1:]
	}

	var result loginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	return &result, nil
}
