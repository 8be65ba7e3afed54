package zmux

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// EncodeCookies 将多个 cookie 按添加顺序合并为一个 Cookie 头："name=value; name=value"
//
//	调用方需先用 ValidateCookies 检查，非法字符会被丢弃。
func EncodeCookies(cookies []*http.Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	r := &http.Request{Header: make(http.Header)}
	for _, c := range cookies {
		if c == nil {
			continue
		}
		r.AddCookie(c)
	}
	return r.Header.Get("Cookie")
}

// ValidateCookies 检查每个 cookie 都能原样合并与还原；nil 被忽略
func ValidateCookies(cookies []*http.Cookie) error {
	for i, c := range cookies {
		if c == nil {
			continue
		}
		if err := c.Valid(); err != nil {
			return errors.WithMessagef(ErrInvalidCookie, "cookie %d (%q): %v", i, c.Name, err)
		}
	}
	return nil
}

// DecodeCookies 从合并后的 Cookie 头还原 (name, value) 集合
func DecodeCookies(merged string) ([]*http.Cookie, error) {
	if strings.TrimSpace(merged) == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(merged)
	if err != nil {
		return nil, errors.Wrapf(err, "zmux: decode cookies %q", merged)
	}
	return cookies, nil
}
