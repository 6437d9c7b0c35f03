package showdown

import (
	"strings"
	"unicode"
)

// rankOrder 服务器身份符号的排序权重，下标越小权限越高。
// 顺序：管理员、房主、主持人、版主、驱动员、分区负责人、
// 机器人、对战玩家、发言权、奖品获得者、普通用户、禁言、封禁。
var rankOrder = []rune{'&', '#', '★', '@', '%', '§', '*', '☆', '+', '^', ' ', '!', '‽'}

// rankWeight 身份符号 -> 权重
var rankWeight = func() map[rune]int {
	m := make(map[rune]int, len(rankOrder))
	for i, r := range rankOrder {
		m[r] = i
	}
	return m
}()

// IsRank 判断字符是否为合法的身份符号
func IsRank(r rune) bool {
	_, ok := rankWeight[r]
	return ok
}

// ToID 将显示名规范化为稳定的键：去掉所有非字母数字字符并转为小写
func ToID(name string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, name))
}

// User 房间内的用户，不可变值类型。
// ID 由 Name 规范化而来，是花名册的稳定键；两个 User 的 ID 相同即视为同一身份。
type User struct {
	ID     string // 规范化 ID
	Name   string // 显示名
	Rank   rune   // 身份符号
	Status string // 状态文本
	Away   bool   // 是否离开
}

// NewUser 创建用户，ID 由 Name 派生
func NewUser(name string, rank rune, status string, away bool) User {
	return User{
		ID:     ToID(name),
		Name:   name,
		Rank:   rank,
		Status: status,
		Away:   away,
	}
}

// String 返回协议形式：rank+name[@[!]status]
func (u User) String() string {
	var b strings.Builder
	b.WriteRune(u.Rank)
	b.WriteString(u.Name)
	if u.Away || u.Status != "" {
		b.WriteByte('@')
		if u.Away {
			b.WriteByte('!')
		}
		b.WriteString(u.Status)
	}
	return b.String()
}

// Less 花名册排序：先按身份权重，再在线优先，最后按名字（不区分大小写）
func (u User) Less(other User) bool {
	uw, ok := rankWeight[u.Rank]
	if !ok {
		uw = len(rankOrder)
	}
	ow, ok := rankWeight[other.Rank]
	if !ok {
		ow = len(rankOrder)
	}
	if uw != ow {
		return uw < ow
	}
	if u.Away != other.Away {
		return !u.Away
	}
	return strings.ToLower(u.Name) < strings.ToLower(other.Name)
}

// parseUser 解析协议中的用户字段：首字符为身份符号，其余为 name[@status]。
// 状态以 '!' 开头表示离开，'!' 会从状态中去除。
// withStatus 为 false 时不解析状态（leave 消息不携带状态）。
func parseUser(s string, withStatus bool) User {
	if s == "" {
		return NewUser("", ' ', "", false)
	}

	runes := []rune(s)
	rank := runes[0]
	rest := string(runes[1:])
	if !IsRank(rank) {
		// 有时服务器不带前导空格
		rank = ' '
		rest = s
	}

	name := rest
	status := ""
	away := false
	if withStatus {
		if i := strings.IndexByte(rest, '@'); i >= 0 {
			name, status = rest[:i], rest[i+1:]
			if strings.HasPrefix(status, "!") {
				away = true
				status = status[1:]
			}
		}
	}

	return NewUser(name, rank, status, away)
}
