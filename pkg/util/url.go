package util

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyPageURL is returned when a page URL is empty after normalization
var ErrEmptyPageURL = errors.New("page url is empty")

// MaxPageURLLength 页面地址最大长度
const MaxPageURLLength = 2048

// NormalizePageURL returns the canonical form of a page URL used as the note scope key.
// Scheme and host are lowercased, the fragment and default ports are dropped and an empty
// path becomes "/". Site-relative paths starting with "/" are accepted as-is.
// NormalizePageURL 规范化页面地址，作为笔记的分组键
func NormalizePageURL(raw string) (string, error) {
	s := norm.NFC.String(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrEmptyPageURL
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.RawFragment = ""

	if u.Scheme == "" && u.Host == "" {
		if !strings.HasPrefix(u.Path, "/") {
			return "", errors.New("page url must be absolute or start with /")
		}
		return checkURLLength(u.String())
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(host, ":80")) || (u.Scheme == "https" && strings.HasSuffix(host, ":443")) {
		host = host[:strings.LastIndex(host, ":")]
	}
	u.Host = host
	if u.Path == "" {
		u.Path = "/"
	}

	return checkURLLength(u.String())
}

func checkURLLength(s string) (string, error) {
	if len(s) > MaxPageURLLength {
		return "", errors.New("page url is too long")
	}
	return s, nil
}
