package showdown

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind 消息种类，对应协议行的类型标签
type Kind string

const (
	// KindNone 无类型消息（无第二个字段或标签未识别）
	KindNone Kind = ""
	// KindInit 房间初始化
	KindInit Kind = "init"
	// KindDeinit 房间移除
	KindDeinit Kind = "deinit"
	// KindTitle 房间标题
	KindTitle Kind = "title"
	// KindUsers 花名册全量
	KindUsers Kind = "users"
	// KindHTML 房间 HTML
	KindHTML Kind = "html"
	// KindUHTML 具名 HTML
	KindUHTML Kind = "uhtml"
	// KindUHTMLChange 具名 HTML 更新
	KindUHTMLChange Kind = "uhtmlchange"
	// KindJoin 用户加入
	KindJoin Kind = "join"
	// KindLeave 用户离开
	KindLeave Kind = "leave"
	// KindRename 用户改名
	KindRename Kind = "name"
	// KindChat 聊天消息
	KindChat Kind = "chat"
	// KindTimestamp 房间时间戳
	KindTimestamp Kind = "timestamp"
	// KindBattle 对战开始通告
	KindBattle Kind = "battle"
	// KindPopup 弹窗
	KindPopup Kind = "popup"
	// KindPM 私聊
	KindPM Kind = "pm"
	// KindUserCount 在线人数
	KindUserCount Kind = "usercount"
	// KindNameTaken 用户名不可用
	KindNameTaken Kind = "nametaken"
	// KindChallstr 登录质询串
	KindChallstr Kind = "challstr"
	// KindUpdateUser 当前用户更新
	KindUpdateUser Kind = "updateuser"
	// KindFormats 对战赛制表
	KindFormats Kind = "formats"
	// KindUpdateSearch 匹配搜索状态
	KindUpdateSearch Kind = "updatesearch"
	// KindUpdateChallenges 挑战状态
	KindUpdateChallenges Kind = "updatechallenges"
	// KindQueryResponse 查询响应
	KindQueryResponse Kind = "queryresponse"
	// KindRaw 原始 HTML 片段
	KindRaw Kind = "raw"
	// KindWin 对战胜负
	KindWin Kind = "win"
	// KindPlayer 对战玩家信息
	KindPlayer Kind = "player"
	// KindPageHTML 页面 HTML
	KindPageHTML Kind = "pagehtml"
	// KindError 协议错误文本
	KindError Kind = "error"
)

// Message 一条入站协议行解析后的消息。
// 扁平的带标签结构：Kind 决定哪些字段有意义，其余字段保持零值。
// 所有消息都携带 Room（频道上下文，全局消息通常为空，savereplay 例外）
// 与 Raw（原始行，用于诊断与回放）。
type Message struct {
	Room string // 频道上下文
	Raw  string // 原始协议行
	Kind Kind   // 消息种类

	RoomType  string          // init：房间类型
	Title     string          // title：标题
	UserCount int             // users/usercount：人数
	Users     map[string]User // users：花名册，规范化 ID -> User
	HTML      string          // html/uhtml/uhtmlchange/pagehtml：HTML 内容
	Name      string          // uhtml/uhtmlchange：名称
	User      *User           // join/leave/name/chat/pm/nametaken/updateuser：相关用户
	OldID     string          // name：改名前的规范化 ID
	StatusRaw string          // name：原始状态串
	Text      string          // chat/pm/popup/nametaken：文本内容
	Timestamp *int64          // chat/c:/timestamp：时间戳，nil 表示未携带
	RoomID    string          // battle：对战房间 ID
	User1     string          // battle：玩家一
	User2     string          // battle：玩家二
	Receiver  *User           // pm：接收者
	Challstr  string          // challstr：质询串
	Named     bool            // updateuser：是否已具名登录
	Avatar    string          // updateuser/player：头像
	Settings  json.RawMessage // updateuser：设置 JSON
	Formats   []FormatSection // formats：赛制表
	JSON      json.RawMessage // updatesearch/updatechallenges：负载 JSON
	QueryType string          // queryresponse：查询类型
	QueryData json.RawMessage // queryresponse：响应 JSON
	Password  string          // queryresponse(savereplay)：回放密码
	Data      string          // raw：内容
	Winner    string          // win：胜者
	Player    string          // player：玩家位
	Rating    *int            // player：分数，nil 表示未携带
	Error     string          // error：错误文本
}

// String 返回消息的诊断形式
func (m *Message) String() string {
	return "<Message: " + m.Raw + ">"
}

// untyped 回退为无类型消息
func untyped(room, line string) *Message {
	return &Message{Room: room, Raw: line, Kind: KindNone}
}

// Parse 将一条原始协议行解析为消息。
// 解析是纯函数且全函数：任何输入都会得到某个消息，格式不符的行
// 回退为 KindNone，多余字段被忽略，缺失的可选尾部字段保持未设置，
// 绝不向调用方抛出错误。
func Parse(room, line string) *Message {
	fields := strings.Split(line, "|")
	if len(fields) < 2 {
		return untyped(room, line)
	}

	m := &Message{Room: room, Raw: line}

	// tail 取第 i 个之后的所有字段并用分隔符重新拼接；
	// HTML、JSON 等负载本身可能合法地包含分隔符。
	tail := func(i int) string {
		if i >= len(fields) {
			return ""
		}
		return strings.Join(fields[i:], "|")
	}
	// field 越界时返回空串
	field := func(i int) string {
		if i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	// need 检查必需字段数
	need := func(n int) bool { return len(fields) > n }

	switch fields[1] {
	case "init":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindInit
		m.RoomType = fields[2]

	case "deinit":
		m.Kind = KindDeinit

	case "title":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindTitle
		m.Title = fields[2]

	case "users":
		if !need(2) {
			return untyped(room, line)
		}
		count, users, ok := parseRoster(fields[2])
		if !ok {
			return untyped(room, line)
		}
		m.Kind = KindUsers
		m.UserCount = count
		m.Users = users

	case "html":
		m.Kind = KindHTML
		m.HTML = tail(2)

	case "uhtml":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindUHTML
		m.Name = fields[2]
		m.HTML = tail(3)

	case "uhtmlchange":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindUHTMLChange
		m.Name = fields[2]
		m.HTML = tail(3)

	case "j", "J", "join":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindJoin
		u := parseUser(fields[2], true)
		m.User = &u

	case "l", "L", "leave":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindLeave
		u := parseUser(fields[2], false)
		m.User = &u

	case "n", "N", "name":
		if !need(3) {
			return untyped(room, line)
		}
		m.Kind = KindRename
		u := parseUser(fields[2], true)
		m.User = &u
		m.OldID = fields[3]
		if i := strings.IndexByte(fields[2], '@'); i >= 0 {
			m.StatusRaw = fields[2][i+1:]
		}

	case "c", "chat":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindChat
		u := parseUser(fields[2], false)
		m.User = &u
		m.Text = tail(3)

	case "c:":
		if !need(3) {
			return untyped(room, line)
		}
		ts, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return untyped(room, line)
		}
		m.Kind = KindChat
		m.Timestamp = &ts
		u := parseUser(fields[3], false)
		m.User = &u
		m.Text = tail(4)

	case ":":
		if !need(2) {
			return untyped(room, line)
		}
		ts, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return untyped(room, line)
		}
		m.Kind = KindTimestamp
		m.Timestamp = &ts

	case "battle":
		if !need(4) {
			return untyped(room, line)
		}
		m.Kind = KindBattle
		m.RoomID = fields[2]
		m.User1 = fields[3]
		m.User2 = fields[4]

	case "popup":
		m.Kind = KindPopup
		m.Text = tail(2)

	case "pm":
		if !need(3) {
			return untyped(room, line)
		}
		m.Kind = KindPM
		sender := parseUser(fields[2], false)
		receiver := parseUser(fields[3], false)
		m.User = &sender
		m.Receiver = &receiver
		m.Text = tail(4)

	case "usercount":
		if !need(2) {
			return untyped(room, line)
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil {
			return untyped(room, line)
		}
		m.Kind = KindUserCount
		m.UserCount = count

	case "nametaken":
		if !need(3) {
			return untyped(room, line)
		}
		m.Kind = KindNameTaken
		u := parseUser(fields[2], false)
		m.User = &u
		m.Text = fields[3]

	case "challstr":
		m.Kind = KindChallstr
		m.Challstr = tail(2)

	case "updateuser":
		if !need(4) {
			return untyped(room, line)
		}
		m.Kind = KindUpdateUser
		u := parseUser(fields[2], true)
		m.User = &u
		m.Named = fields[3] == "1"
		m.Avatar = fields[4]
		if settings := tail(5); settings != "" && json.Valid([]byte(settings)) {
			m.Settings = json.RawMessage(settings)
		}

	case "formats":
		m.Kind = KindFormats
		m.Formats = ParseFormats(tail(2))

	case "updatesearch":
		payload := tail(2)
		if !json.Valid([]byte(payload)) {
			return untyped(room, line)
		}
		m.Kind = KindUpdateSearch
		m.JSON = json.RawMessage(payload)

	case "updatechallenges":
		payload := tail(2)
		if !json.Valid([]byte(payload)) {
			return untyped(room, line)
		}
		m.Kind = KindUpdateChallenges
		m.JSON = json.RawMessage(payload)

	case "queryresponse":
		if !need(2) {
			return untyped(room, line)
		}
		payload := tail(3)
		if !json.Valid([]byte(payload)) {
			return untyped(room, line)
		}
		m.Kind = KindQueryResponse
		m.QueryType = fields[2]
		m.QueryData = json.RawMessage(payload)

		// savereplay 作为全局消息下发，房间要从负载里取，
		// 这是唯一一处消息的房间来自负载而非连接上下文。
		if m.QueryType == "savereplay" {
			var replay struct {
				ID       string `json:"id"`
				Password string `json:"password"`
			}
			if err := json.Unmarshal(m.QueryData, &replay); err == nil {
				m.Room = replay.ID
				m.Password = replay.Password
			}
		}

	case "raw":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindRaw
		m.Data = fields[2]

	case "win":
		if !need(2) {
			return untyped(room, line)
		}
		m.Kind = KindWin
		m.Winner = fields[2]

	case "player":
		// 尾部字段可缺失，缺失即保持未设置
		m.Kind = KindPlayer
		m.Player = field(2)
		if name := field(3); name != "" {
			u := parseUser(name, false)
			m.User = &u
		}
		m.Avatar = field(4)
		if rating := field(5); rating != "" {
			if n, err := strconv.Atoi(rating); err == nil {
				m.Rating = &n
			}
		}

	case "pagehtml":
		m.Kind = KindPageHTML
		m.HTML = tail(2)

	case "error":
		m.Kind = KindError
		m.Error = tail(2)

	default:
		return untyped(room, line)
	}

	return m
}

// parseRoster 解析 users 消息的花名册字段：<count>,<rank><name>[@status],...
func parseRoster(s string) (int, map[string]User, bool) {
	parts := strings.Split(s, ",")
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, nil, false
	}

	users := make(map[string]User, len(parts)-1)
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		u := parseUser(part, true)
		users[u.ID] = u
	}
	return count, users, true
}

// FormatSection 赛制表中的一个分区，保持服务器下发顺序
type FormatSection struct {
	Name    string
	Formats []Format
}

// Format 单个赛制及其能力标志
type Format struct {
	Name  string
	Rules []string
}

// 赛制能力标志位
var formatRuleBits = []struct {
	bit  uint64
	rule string
}{
	{1, "Requires Team"},
	{2, "Available for Search"},
	{4, "Available for Challenge"},
	{8, "Available for Tournaments"},
	{16, "Level 50"},
}

// ParseFormats 解析 formats 消息的负载。
// 负载本身以分隔符切分：以 ',' 开头的段引入新分区（",LL" 是本地测试
// 产物，整段跳过），下一段为分区名，之后的段是 <赛制名>,<十六进制标志>。
// 赛制名可能含逗号，标志始终取最后一个逗号之后的部分。
func ParseFormats(payload string) []FormatSection {
	var sections []FormatSection
	inSection := false
	skipSection := false

	for _, item := range strings.Split(payload, "|") {
		if item == "" {
			continue
		}

		if inSection {
			sections = append(sections, FormatSection{Name: item})
			inSection = false
			continue
		}

		if item[0] == ',' {
			if item[1:] == "LL" {
				// 本地运行的哨兵段，跳过其后的整个分区
				skipSection = true
				continue
			}
			inSection = true
			skipSection = false
			continue
		}

		if skipSection || len(sections) == 0 {
			continue
		}

		i := strings.LastIndexByte(item, ',')
		if i < 0 {
			continue
		}
		name, flagStr := item[:i], item[i+1:]
		flags, err := strconv.ParseUint(flagStr, 16, 64)
		if err != nil {
			continue
		}

		var rules []string
		for _, rb := range formatRuleBits {
			if flags&rb.bit != 0 {
				rules = append(rules, rb.rule)
			}
		}

		last := len(sections) - 1
		sections[last].Formats = append(sections[last].Formats, Format{Name: name, Rules: rules})
	}

	return sections
}
