package showdown

import (
	"context"
	"fmt"
	"sync"
)

// Plugin 消息处理插件。
// 每条入站消息按注册顺序依次询问各插件：Match 判定是否处理，
// Response 产出回复文本（空串表示无回复）。两者都可能阻塞，
// 通过 ctx 取消。回放的历史消息默认不可见，除非 ScrollbackAccess
// 返回 true。
type Plugin interface {
	// Match 判断消息是否由本插件处理
	Match(ctx context.Context, m *Message) (bool, error)

	// Response 产出回复，空串表示无回复。
	// 私聊消息的回复发回发送者，其余发到消息所在房间。
	Response(ctx context.Context, m *Message) (string, error)

	// ScrollbackAccess 是否接收回放的历史消息
	ScrollbackAccess() bool
}

// BasePlugin 插件基类，提供默认的历史消息可见性（不可见）。
// 嵌入后只需实现 Match 与 Response。
type BasePlugin struct{}

// ScrollbackAccess 默认不接收历史消息
func (BasePlugin) ScrollbackAccess() bool { return false }

// Factory 插件工厂：由注册名解析得到，为指定客户端构造一组插件
type Factory func(c *Client) []Plugin

// Registry 插件注册表。
// 启动时按配置把插件名解析为工厂并实例化；单个表项解析失败
// 只记录日志，不影响其余插件的加载。
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register 注册插件工厂，重名返回 ErrPluginExists
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrPluginExists, name)
	}

	r.factories[name] = factory
	return nil
}

// Lookup 按名查找插件工厂
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return factory, nil
}

// Names 返回已注册的插件名
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// defaultRegistry 全局默认注册表
var defaultRegistry = NewRegistry()

// RegisterPlugin 向全局默认注册表注册插件工厂
func RegisterPlugin(name string, factory Factory) error {
	return defaultRegistry.Register(name, factory)
}

// DefaultRegistry 返回全局默认注册表
func DefaultRegistry() *Registry {
	return defaultRegistry
}
