package showdown

import (
	"sort"
	"strings"
)

// Room 已加入的房间（聊天频道或对战实例）的会话状态。
// 房间由 init 消息创建、deinit 消息移除，表项归属 Client 的房间表，
// 插件只能通过 Client 的表修改房间，不得跨调度持有私有副本。
type Room struct {
	ID              string          // 房间 ID（私密对战已去掉密码段）
	Title           string          // 标题，空串表示未设置
	Users           map[string]User // 花名册：规范化 ID -> User
	IsBattle        bool            // 是否为对战房
	IsPrivateBattle bool            // 是否为带密码的私密对战
	Password        string          // 私密对战密码
	JoinTime        int64           // 加入时间戳，0 表示未记录
}

// NewRoom 按原始房间标识创建房间。
// 形如 battle-<format>-<number>-<password> 的标识（恰好 3 个连字符）
// 会剥离尾部密码段单独保存。
func NewRoom(rawID string) *Room {
	r := &Room{
		ID:    rawID,
		Users: make(map[string]User),
	}

	r.IsBattle = strings.HasPrefix(rawID, "battle-")
	if r.IsBattle && strings.Count(rawID, "-") == 3 {
		i := strings.LastIndexByte(rawID, '-')
		r.IsPrivateBattle = true
		r.Password = rawID[i+1:]
		r.ID = rawID[:i]
	}

	return r
}

// SortedUsers 返回按身份权重排序的花名册快照
func (r *Room) SortedUsers() []User {
	users := make([]User, 0, len(r.Users))
	for _, u := range r.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Less(users[j])
	})
	return users
}

// String 返回房间的描述形式
func (r *Room) String() string {
	return "Room(" + r.ID + ")"
}
