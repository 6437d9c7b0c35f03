package showdown

import (
	"context"

	"go.uber.org/zap"
)

// systemPlugins 维持房间/用户状态正确性所必需的插件，
// 始终最先加载，按声明顺序派发。
func systemPlugins(c *Client) []Plugin {
	return []Plugin{
		&initPlugin{client: c},
		&deinitPlugin{client: c},
		&titlePlugin{client: c},
		&timestampPlugin{client: c},
		&usersPlugin{client: c},
		&joinPlugin{client: c},
		&leavePlugin{client: c},
		&renamePlugin{client: c},
		&challstrPlugin{client: c},
	}
}

// initPlugin 处理 init：在房间表中创建（或覆盖）表项
type initPlugin struct {
	BasePlugin
	client *Client
}

func (p *initPlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindInit, nil
}

func (p *initPlugin) Response(_ context.Context, m *Message) (string, error) {
	p.client.setRoom(m.Room, NewRoom(m.Room))
	return "", nil
}

// deinitPlugin 处理 deinit：移除房间表项。
// 幂等：别名进入、从未单独记录的房间也会收到 deinit，缺项不算错误。
type deinitPlugin struct {
	BasePlugin
	client *Client
}

func (p *deinitPlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindDeinit, nil
}

func (p *deinitPlugin) Response(_ context.Context, m *Message) (string, error) {
	p.client.deleteRoom(m.Room)
	return "", nil
}

// titlePlugin 处理 title：设置房间标题
type titlePlugin struct {
	BasePlugin
	client *Client
}

func (p *titlePlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindTitle, nil
}

func (p *titlePlugin) Response(_ context.Context, m *Message) (string, error) {
	p.client.UpdateRoom(m.Room, func(r *Room) {
		r.Title = m.Title
	})
	return "", nil
}

// timestampPlugin 处理 |:|：记录房间的加入时间，用于识别历史回放。
// 房间未知属于前置条件被破坏，生产环境按空操作处理并告警。
type timestampPlugin struct {
	BasePlugin
	client *Client
}

func (p *timestampPlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindTimestamp, nil
}

func (p *timestampPlugin) Response(_ context.Context, m *Message) (string, error) {
	ok := p.client.UpdateRoom(m.Room, func(r *Room) {
		r.JoinTime = *m.Timestamp
	})
	if !ok {
		p.client.log.Warn("收到未知房间的时间戳", zap.String("room", m.Room))
	}
	return "", nil
}

// usersPlugin 处理 users：整体替换房间花名册
type usersPlugin struct {
	BasePlugin
	client *Client
}

func (p *usersPlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindUsers, nil
}

func (p *usersPlugin) Response(_ context.Context, m *Message) (string, error) {
	p.client.UpdateRoom(m.Room, func(r *Room) {
		r.Users = m.Users
	})
	return "", nil
}

// joinPlugin 处理 join：把用户写入花名册
type joinPlugin struct {
	BasePlugin
	client *Client
}

func (p *joinPlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindJoin, nil
}

func (p *joinPlugin) Response(_ context.Context, m *Message) (string, error) {
	p.client.UpdateRoom(m.Room, func(r *Room) {
		r.Users[m.User.ID] = *m.User
	})
	return "", nil
}

// leavePlugin 处理 leave：按 ID 从花名册移除，缺项为空操作
type leavePlugin struct {
	BasePlugin
	client *Client
}

func (p *leavePlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindLeave, nil
}

func (p *leavePlugin) Response(_ context.Context, m *Message) (string, error) {
	p.client.UpdateRoom(m.Room, func(r *Room) {
		delete(r.Users, m.User.ID)
	})
	return "", nil
}

// renamePlugin 处理 name：把表项从旧 ID 迁移到新 ID。
// 改名产生新的身份键，旧表项被移除并替换；旧 ID 缺失时为空操作。
type renamePlugin struct {
	BasePlugin
	client *Client
}

func (p *renamePlugin) Match(_ context.Context, m *Message) (bool, error) {
	return m.Kind == KindRename, nil
}

func (p *renamePlugin) Response(_ context.Context, m *Message) (string, error) {
	p.client.UpdateRoom(m.Room, func(r *Room) {
		if _, ok := r.Users[m.OldID]; !ok {
			return
		}
		delete(r.Users, m.OldID)
		r.Users[m.User.ID] = *m.User
	})
	return "", nil
}
