package apiclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

const msPerDay = 86400000

// CookieStore はクライアント側のクッキー保存先です。
type CookieStore interface {
	Get(name string) (string, bool)
	Set(name, value string, expires time.Time)
}

// SessionExpiry は now から expiryDays 日後（ミリ秒単位で計算）の時刻を返します。
func SessionExpiry(now time.Time, expiryDays float64) time.Time {
	return now.Add(time.Duration(expiryDays * msPerDay * float64(time.Millisecond)))
}

// FormatCookie は "name=value; expires=<UTC日時>; path=/" 形式の文字列を返します。
// Secure / HttpOnly / SameSite 属性は付与しません。
func FormatCookie(name, value string, expires time.Time) string {
	return fmt.Sprintf("%s=%s; expires=%s; path=/", name, value, expires.UTC().Format(http.TimeFormat))
}

// MemoryStore はメモリ上のクッキーストアです。書き込まれたクッキー文字列も保持します。
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
	written []string
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get は有効期限内のクッキー値を返します。
func (s *MemoryStore) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[name]
	if !ok || !entry.expires.After(s.now()) {
		return "", false
	}
	return entry.value, true
}

// Set はクッキーを書き込みます。
func (s *MemoryStore) Set(name, value string, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = memoryEntry{value: value, expires: expires}
	s.written = append(s.written, FormatCookie(name, value, expires))
}

// Written はこれまでに書き込まれたクッキー文字列を順に返します。
func (s *MemoryStore) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.written))
	copy(out, s.written)
	return out
}

// JarStore は net/http の cookiejar をベース URL に紐づけて使うクッキーストアです。
// Client の http.Client に同じ jar を設定するので、書き込んだクッキーは以降のリクエストに送信されます。
type JarStore struct {
	jar  http.CookieJar
	base *url.URL
}

// NewJarStore は baseURL 用の JarStore を作成します。
func NewJarStore(baseURL string) (*JarStore, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &JarStore{jar: jar, base: base}, nil
}

// Jar は内部の CookieJar を返します。
func (s *JarStore) Jar() http.CookieJar {
	return s.jar
}

// Get はベース URL 宛てに送信されるクッキーの値を返します。
func (s *JarStore) Get(name string) (string, bool) {
	for _, c := range s.jar.Cookies(s.base) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Set はベース URL に対してパス "/" のクッキーを書き込みます。
func (s *JarStore) Set(name, value string, expires time.Time) {
	s.jar.SetCookies(s.base, []*http.Cookie{{
		Name:    name,
		Value:   value,
		Path:    "/",
		Expires: expires,
	}})
}
