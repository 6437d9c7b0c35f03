package showdown

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnectionConfig 连接配置
type ConnectionConfig struct {
	HandshakeTimeout time.Duration // 握手超时时间
	WriteWait        time.Duration // 单次写入超时时间
	ReadBufferSize   int           // 读缓冲区大小
	WriteBufferSize  int           // 写缓冲区大小
}

// DefaultConnectionConfig 默认连接配置
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteWait:        10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
}

// Connection 到服务器的持久 WebSocket 连接。
// 只负责连接的建立、收发与关闭，失败时报告错误而不做任何恢复，
// 也从不解释帧内容（一帧可能包含多条以换行连接的协议行，恢复与
// 拆帧都是会话层的职责）。
type Connection struct {
	url    string
	config ConnectionConfig

	mu   sync.Mutex // 保护 conn 与写入串行化
	conn *websocket.Conn
}

// NewConnection 创建连接，url 形如 wss://host:port/showdown/websocket
func NewConnection(url string, config ConnectionConfig) *Connection {
	return &Connection{
		url:    url,
		config: config,
	}
}

// URL 返回连接目标地址
func (c *Connection) URL() string {
	return c.url
}

// Connect 建立传输连接。端点不可达或 TLS/WS 握手失败时返回传输错误。
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return ErrAlreadyConnected
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
		ReadBufferSize:   c.config.ReadBufferSize,
		WriteBufferSize:  c.config.WriteBufferSize,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

// Send 写入一个文本帧。未建立连接时返回 ErrNotConnected。
func (c *Connection) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Receive 读取一个入站文本帧。
// 仅用于单步交互；主循环由会话层直接循环消费。
func (c *Connection) Receive() (string, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return "", ErrNotConnected
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close 关闭连接并释放底层资源。已关闭时返回 ErrNotConnected。
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	// 尽力发送关闭帧，忽略错误
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	err := c.conn.Close()
	c.conn = nil
	return err
}

// Connected 返回当前是否持有活跃连接
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}
