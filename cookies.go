package showdown

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"
)

// CookieStore 登录凭证的持久化端口。
// 显式注入而非登录流程的隐藏副作用，测试中可用假实现替换。
type CookieStore interface {
	// Load 读取持久化的 Cookie，不存在时返回 (nil, nil)
	Load() ([]*http.Cookie, error)

	// Save 持久化 Cookie 快照
	Save(cookies []*http.Cookie) error
}

// cookieRecord Cookie 的序列化形式
type cookieRecord struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
	Secure bool   `json:"secure,omitempty"`
	MaxAge int    `json:"max_age,omitempty"`
}

// FileCookieStore 基于 JSON 文件的 CookieStore
type FileCookieStore struct {
	path string
	mu   sync.Mutex
}

// NewFileCookieStore 创建文件存储
func NewFileCookieStore(path string) *FileCookieStore {
	return &FileCookieStore{path: path}
}

// Load 读取 Cookie 文件，文件缺失视为无凭证
func (s *FileCookieStore) Load() ([]*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []cookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	cookies := make([]*http.Cookie, 0, len(records))
	for _, r := range records {
		cookies = append(cookies, &http.Cookie{
			Name:   r.Name,
			Value:  r.Value,
			Domain: r.Domain,
			Path:   r.Path,
			Secure: r.Secure,
			MaxAge: r.MaxAge,
		})
	}
	return cookies, nil
}

// Save 覆盖写入 Cookie 文件
func (s *FileCookieStore) Save(cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]cookieRecord, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, cookieRecord{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
			MaxAge: c.MaxAge,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
