package showdown

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/showdown/pkg/logger"
)

// outbound 出站队列中的一条消息
type outbound struct {
	room string
	text string
}

// Client 到单个服务器的长连会话。
// 负责带退避的重连循环、房间/用户状态表、出站限流队列，
// 以及把解析后的消息派发给各插件的调度循环。
type Client struct {
	config *Config
	conn   *Connection
	log    logger.Logger
	login  *loginClient

	// rooms 房间表，唯一归属本会话；所有变更都经由调度循环
	// 内同步调用的插件发生，mu 保证外部读取安全
	mu    sync.RWMutex
	rooms map[string]*Room

	// plugins 按注册顺序派发
	plugins []Plugin

	// 出站队列，惰性创建，单消费者
	sendOnce sync.Once
	sendCh   chan outbound

	connected atomic.Bool
	loggingIn atomic.Bool
	backoff   atomic.Int64 // 当前重连等待，纳秒

	// sessionID 每个连接周期生成一次，仅用于日志关联
	sessionID string
}

// New 创建客户端
func New(opts ...Option) (*Client, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.CookieStore == nil {
		config.CookieStore = NewFileCookieStore("cookies.json")
	}
	if config.Registry == nil {
		config.Registry = defaultRegistry
	}

	c := &Client{
		config: config,
		conn:   NewConnection(config.ServerURL, config.Connection),
		log:    config.Logger,
		rooms:  make(map[string]*Room),
	}
	c.login = newLoginClient(c)
	c.backoff.Store(int64(config.ReconnectInitialDelay))
	c.loadPlugins()

	return c, nil
}

// Username 返回配置的用户名
func (c *Client) Username() string {
	return c.config.Username
}

// Connected 返回会话是否处于已连接状态
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// loadPlugins 加载系统插件与配置指定的插件。
// 单个插件解析失败只记录日志，不影响其余插件。
func (c *Client) loadPlugins() {
	c.plugins = systemPlugins(c)

	for _, name := range c.config.Plugins {
		factory, err := c.config.Registry.Lookup(name)
		if err != nil {
			c.log.Error("加载插件失败",
				zap.String("plugin", name),
				zap.Error(err))
			continue
		}
		c.plugins = append(c.plugins, factory(c)...)
		c.log.Info("插件已加载", zap.String("plugin", name))
	}
}

// Run 维持到服务器的连接直到 ctx 取消。
// 未连接时等待退避时长后重连；每个失败周期退避翻倍并封顶于
// ReconnectMaxDelay，登录成功后重置为初始值。
func (c *Client) Run(ctx context.Context) error {
	for {
		delay := time.Duration(c.backoff.Load())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := c.runOnce(ctx); err != nil {
			c.log.Warn("连接周期结束",
				zap.String("session", c.sessionID),
				zap.Error(err))
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// 退避翻倍，封顶
		next := time.Duration(c.backoff.Load()) * 2
		if next > c.config.ReconnectMaxDelay {
			next = c.config.ReconnectMaxDelay
		}
		c.backoff.Store(int64(next))
	}
}

// runOnce 执行一个连接周期：建连，然后并行运行接收与发送循环，
// 任一循环失败即关闭连接并返回。
func (c *Client) runOnce(ctx context.Context) error {
	c.sessionID = uuid.NewString()
	c.loggingIn.Store(false)

	if err := c.conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.connected.Store(true)
	c.log.Info("已连接",
		zap.String("session", c.sessionID),
		zap.String("url", c.conn.URL()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.receiveLoop(gctx) })
	g.Go(func() error { return c.sendLoop(gctx) })
	g.Go(func() error {
		// ctx 取消或任一循环失败时关闭连接，解除阻塞的读取
		<-gctx.Done()
		_ = c.conn.Close()
		return nil
	})

	err := g.Wait()
	c.connected.Store(false)
	_ = c.conn.Close()
	return err
}

// receiveLoop 持续读取入站帧并派发，流结束或出错时返回
func (c *Client) receiveLoop(ctx context.Context) error {
	for {
		frame, err := c.conn.Receive()
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		c.handleFrame(ctx, frame)
	}
}

// handleFrame 拆帧：帧内多条协议行以换行连接，首行以 '>' 开头时
// 指明帧内所有行的房间上下文，否则为全局房间。
// 派发按到达顺序同步进行，因此单个房间内的顺序得以保持。
func (c *Client) handleFrame(ctx context.Context, frame string) {
	lines := strings.Split(frame, "\n")

	room := ""
	if len(lines) > 0 && strings.HasPrefix(lines[0], ">") {
		room = lines[0][1:]
		lines = lines[1:]
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		c.handleMessage(ctx, room, line)
	}
}

// handleMessage 解析一条协议行并按注册顺序派发给各插件。
// 回放的历史消息只派发给声明了 ScrollbackAccess 的插件。
func (c *Client) handleMessage(ctx context.Context, room, line string) {
	c.log.Debug("收到消息",
		zap.String("session", c.sessionID),
		zap.String("room", room),
		zap.String("line", line))

	m := Parse(room, line)
	old := c.isOldMessage(m)

	for _, p := range c.plugins {
		if old && !p.ScrollbackAccess() {
			continue
		}
		c.dispatch(ctx, p, m)
	}
}

// isOldMessage 判断消息是否为加入前的历史回放：
// 仅聊天消息且房间已知、记录过加入时间、消息带时间戳且早于加入时间
func (c *Client) isOldMessage(m *Message) bool {
	if m.Kind != KindChat || m.Timestamp == nil {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rooms[m.Room]
	if !ok || r.JoinTime == 0 {
		return false
	}
	return *m.Timestamp < r.JoinTime
}

// dispatch 对单个插件执行 match/response。
// 插件内的任何失败（含 panic）都被就地捕获：记录日志并尽力把
// 诊断信息回给触发消息的用户，绝不中断其余插件或接收循环。
func (c *Client) dispatch(ctx context.Context, p Plugin, m *Message) {
	defer func() {
		if r := recover(); r != nil {
			c.pluginFailure(p, m, fmt.Errorf("panic: %v", r))
		}
	}()

	matched, err := p.Match(ctx, m)
	if err != nil {
		c.pluginFailure(p, m, err)
		return
	}
	if !matched {
		return
	}

	resp, err := p.Response(ctx, m)
	if err != nil {
		c.pluginFailure(p, m, err)
		return
	}
	if resp == "" {
		return
	}

	// 私聊回复发回发送者，其余发到消息所在房间
	if m.Kind == KindPM && m.User != nil {
		if err := c.SendPM(m.User.Name, resp); err != nil {
			c.log.Warn("回复私聊失败", zap.Error(err))
		}
		return
	}
	if err := c.Send(m.Room, resp); err != nil {
		c.log.Warn("发送回复失败",
			zap.String("room", m.Room),
			zap.Error(err))
	}
}

// pluginFailure 记录插件错误并尽力通知触发消息的用户
func (c *Client) pluginFailure(p Plugin, m *Message, err error) {
	c.log.Error("插件处理消息失败",
		zap.String("session", c.sessionID),
		zap.String("plugin", fmt.Sprintf("%T", p)),
		zap.String("message", m.Raw),
		zap.Error(err))

	if m.User != nil && m.User.Name != "" {
		_ = c.SendPM(m.User.Name, fmt.Sprintf("plugin error: %v", err))
	}
}

// queue 惰性创建出站队列，容忍与首次使用并发
func (c *Client) queue() chan outbound {
	c.sendOnce.Do(func() {
		c.sendCh = make(chan outbound, c.config.SendQueueSize)
	})
	return c.sendCh
}

// Send 把消息排入出站队列，以 <room>|<text> 发往服务器。
// 调用方视角是非阻塞入队，实际写入由限流消费者完成；
// 队列已满时返回 ErrSendQueueFull。
func (c *Client) Send(room, text string) error {
	select {
	case c.queue() <- outbound{room: room, text: text}:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// SendPM 向用户发送私聊
func (c *Client) SendPM(user, text string) error {
	return c.Send("", fmt.Sprintf("/w %s, %s", user, text))
}

// Join 加入房间
func (c *Client) Join(room string) error {
	return c.Send("", "/join "+room)
}

// Leave 离开房间
func (c *Client) Leave(room string) error {
	return c.Send(room, "/leave")
}

// sendLoop 出站队列的唯一消费者，也是唯一向传输层写入的实体。
// 相邻两次写入之间保持 ThrottleInterval 的最小间隔，突发的插件
// 回复不会超出服务器限速。ctx 取消时丢弃积压的消息后返回。
func (c *Client) sendLoop(ctx context.Context) error {
	ch := c.queue()

	for {
		select {
		case <-ctx.Done():
			c.drainQueue()
			return nil
		case out := <-ch:
			frame := out.room + "|" + out.text
			c.log.Debug("发送消息",
				zap.String("session", c.sessionID),
				zap.String("frame", frame))

			if err := c.conn.Send(frame); err != nil {
				return fmt.Errorf("send: %w", err)
			}

			select {
			case <-ctx.Done():
				c.drainQueue()
				return nil
			case <-time.After(c.config.ThrottleInterval):
			}
		}
	}
}

// drainQueue 丢弃尚未发送的消息，关闭时不因积压阻塞
func (c *Client) drainQueue() {
	for {
		select {
		case <-c.sendCh:
		default:
			return
		}
	}
}

// resetBackoff 登录成功后把重连退避重置为初始值
func (c *Client) resetBackoff() {
	c.backoff.Store(int64(c.config.ReconnectInitialDelay))
}

// Room 按 ID 查找房间。
// 返回的指针仅供读取；变更必须通过 UpdateRoom 串行化。
func (c *Client) Room(id string) (*Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[id]
	return r, ok
}

// Rooms 返回当前房间表的快照
func (c *Client) Rooms() []*Room {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// UpdateRoom 在持锁状态下修改房间，房间不存在时返回 false
func (c *Client) UpdateRoom(id string, fn func(*Room)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[id]
	if !ok {
		return false
	}
	fn(r)
	return true
}

// setRoom 写入（或覆盖）房间表项
func (c *Client) setRoom(id string, r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[id] = r
}

// deleteRoom 删除房间表项，不存在时为空操作
func (c *Client) deleteRoom(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, id)
}
