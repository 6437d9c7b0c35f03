// Package chatlog persists chat and private messages to a SQLite
// database, including replayed scrollback lines.
package chatlog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tokmz/showdown"
)

// DefaultPath 默认数据库文件路径
const DefaultPath = "chatlog.db"

// Entry 一条聊天记录
type Entry struct {
	ID        uint      `gorm:"primaryKey"`
	Room      string    `gorm:"index"` // 房间 ID，私聊为空
	Kind      string    // chat 或 pm
	UserID    string    `gorm:"index"` // 发送者规范化 ID
	UserName  string    // 发送者显示名（含 rank）
	Receiver  string    // 私聊接收者 ID，聊天为空
	Text      string
	SentAt    time.Time // 消息携带的时间戳，缺失时取接收时间
	CreatedAt time.Time
}

// TableName 指定表名
func (Entry) TableName() string {
	return "chat_entries"
}

// Plugin 聊天记录插件。
// 记录所有聊天与私聊消息，包括加入房间时回放的历史消息。
type Plugin struct {
	showdown.BasePlugin
	db *gorm.DB
}

// New 打开数据库并创建插件，自动迁移表结构
func New(path string) (*Plugin, error) {
	if path == "" {
		path = DefaultPath
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("chatlog: open database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("chatlog: migrate: %w", err)
	}

	return &Plugin{db: db}, nil
}

// ScrollbackAccess 历史消息也要入库
func (p *Plugin) ScrollbackAccess() bool { return true }

// Match 只处理聊天和私聊消息
func (p *Plugin) Match(_ context.Context, m *showdown.Message) (bool, error) {
	return m.Kind == showdown.KindChat || m.Kind == showdown.KindPM, nil
}

// Response 写入一条记录，不产生回复
func (p *Plugin) Response(ctx context.Context, m *showdown.Message) (string, error) {
	if m.User == nil {
		return "", nil
	}

	entry := Entry{
		Room:     m.Room,
		Kind:     string(m.Kind),
		UserID:   m.User.ID,
		UserName: m.User.String(),
		Text:     m.Text,
		SentAt:   time.Now(),
	}
	if m.Timestamp != nil {
		entry.SentAt = time.Unix(*m.Timestamp, 0)
	}
	if m.Receiver != nil {
		entry.Receiver = m.Receiver.ID
	}

	if err := p.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return "", fmt.Errorf("chatlog: insert: %w", err)
	}
	return "", nil
}

// Recent 查询某房间最近的 n 条记录，时间倒序
func (p *Plugin) Recent(ctx context.Context, room string, n int) ([]Entry, error) {
	var entries []Entry
	err := p.db.WithContext(ctx).
		Where("room = ?", room).
		Order("sent_at DESC").
		Limit(n).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("chatlog: query: %w", err)
	}
	return entries, nil
}

func init() {
	// 注册到全局插件表，客户端按名 "chatlog" 启用。
	// 打开数据库失败时返回空插件组，由客户端记录加载结果。
	showdown.RegisterPlugin("chatlog", func(c *showdown.Client) []showdown.Plugin {
		p, err := New(DefaultPath)
		if err != nil {
			return nil
		}
		return []showdown.Plugin{p}
	})
}
