package showdown

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tokmz/showdown/pkg/logger"
)

// Config 客户端配置
type Config struct {
	// 连接配置
	ServerURL  string           // WebSocket 地址
	Connection ConnectionConfig // 传输层配置

	// 登录配置
	Username        string        // 用户名
	Password        string        // 密码
	LoginURL        string        // 登录接口基地址
	LoginAttempts   int           // 登录重试次数
	LoginRetryDelay time.Duration // 登录重试间隔

	// 会话配置
	Rooms   []string // 登录成功后自动加入的房间
	Plugins []string // 按注册名加载的插件

	// 重连配置
	ReconnectInitialDelay time.Duration // 首次重连等待时间
	ReconnectMaxDelay     time.Duration // 重连等待上限

	// 出站限流配置
	ThrottleInterval time.Duration // 相邻两次网络写入的最小间隔
	SendQueueSize    int           // 出站队列大小

	// 依赖注入
	Logger      logger.Logger // 日志
	CookieStore CookieStore   // 凭证持久化
	HTTPClient  *http.Client  // 登录用 HTTP 客户端
	Registry    *Registry     // 插件注册表，nil 使用全局默认
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		ServerURL:             "wss://sim3.psim.us/showdown/websocket",
		Connection:            DefaultConnectionConfig(),
		LoginURL:              "https://play.pokemonshowdown.com/api",
		LoginAttempts:         10,
		LoginRetryDelay:       10 * time.Second,
		ReconnectInitialDelay: time.Second,
		ReconnectMaxDelay:     5 * time.Minute,
		ThrottleInterval:      600 * time.Millisecond,
		SendQueueSize:         256,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: ServerURL must not be empty", ErrInvalidConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: Username must not be empty", ErrInvalidConfig)
	}
	if c.LoginURL == "" {
		return fmt.Errorf("%w: LoginURL must not be empty", ErrInvalidConfig)
	}
	if c.LoginAttempts <= 0 {
		return fmt.Errorf("%w: LoginAttempts must be positive, got %d", ErrInvalidConfig, c.LoginAttempts)
	}
	if c.ReconnectInitialDelay <= 0 {
		return fmt.Errorf("%w: ReconnectInitialDelay must be positive, got %v", ErrInvalidConfig, c.ReconnectInitialDelay)
	}
	if c.ReconnectMaxDelay < c.ReconnectInitialDelay {
		return fmt.Errorf("%w: ReconnectMaxDelay (%v) must not be below ReconnectInitialDelay (%v)",
			ErrInvalidConfig, c.ReconnectMaxDelay, c.ReconnectInitialDelay)
	}
	if c.ThrottleInterval <= 0 {
		return fmt.Errorf("%w: ThrottleInterval must be positive, got %v", ErrInvalidConfig, c.ThrottleInterval)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("%w: SendQueueSize must be positive, got %d", ErrInvalidConfig, c.SendQueueSize)
	}
	return nil
}

// Option 客户端选项
type Option func(*Config)

// WithServerURL 设置服务器地址
func WithServerURL(url string) Option {
	return func(c *Config) {
		c.ServerURL = url
	}
}

// WithCredentials 设置登录凭证
func WithCredentials(username, password string) Option {
	return func(c *Config) {
		c.Username = username
		c.Password = password
	}
}

// WithLoginURL 设置登录接口基地址
func WithLoginURL(url string) Option {
	return func(c *Config) {
		c.LoginURL = url
	}
}

// WithLoginRetry 设置登录重试策略
func WithLoginRetry(attempts int, delay time.Duration) Option {
	return func(c *Config) {
		c.LoginAttempts = attempts
		c.LoginRetryDelay = delay
	}
}

// WithRooms 设置自动加入的房间
func WithRooms(rooms ...string) Option {
	return func(c *Config) {
		c.Rooms = rooms
	}
}

// WithPlugins 设置按名加载的插件
func WithPlugins(names ...string) Option {
	return func(c *Config) {
		c.Plugins = names
	}
}

// WithReconnectDelay 设置重连等待区间
func WithReconnectDelay(initial, max time.Duration) Option {
	return func(c *Config) {
		c.ReconnectInitialDelay = initial
		c.ReconnectMaxDelay = max
	}
}

// WithThrottleInterval 设置出站写入最小间隔
func WithThrottleInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.ThrottleInterval = interval
	}
}

// WithSendQueueSize 设置出站队列大小
func WithSendQueueSize(size int) Option {
	return func(c *Config) {
		c.SendQueueSize = size
	}
}

// WithConnectionConfig 设置传输层配置
func WithConnectionConfig(cfg ConnectionConfig) Option {
	return func(c *Config) {
		c.Connection = cfg
	}
}

// WithLogger 设置日志
func WithLogger(log logger.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithCookieStore 设置凭证持久化存储
func WithCookieStore(store CookieStore) Option {
	return func(c *Config) {
		c.CookieStore = store
	}
}

// WithHTTPClient 设置登录用 HTTP 客户端
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithRegistry 设置插件注册表
func WithRegistry(r *Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}
