package util

import (
	"errors"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxPageTitleLength 页面标题最大长度（字符）
	MaxPageTitleLength = 512
	// MaxContentLength 笔记内容最大长度（字符）
	MaxContentLength = 5000
)

var (
	ErrContentEmpty   = errors.New("note content is empty")
	ErrContentTooLong = errors.New("note content is too long")
)

var titlePolicy = bluemonday.StrictPolicy()

// NormalizeContent trims surrounding whitespace and applies NFC normalization.
// The body is otherwise stored verbatim; notes are plain text.
// NormalizeContent 去除首尾空白并做 NFC 规范化
func NormalizeContent(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// ContentLength counts characters, not bytes
// ContentLength 按字符计数
func ContentLength(s string) int {
	return utf8.RuneCountInString(s)
}

// CheckContent normalizes s and reports whether it is a storable note body
// CheckContent 规范化内容并校验非空与长度
func CheckContent(s string) (string, error) {
	s = NormalizeContent(s)
	if s == "" {
		return "", ErrContentEmpty
	}
	if ContentLength(s) > MaxContentLength {
		return s, ErrContentTooLong
	}
	return s, nil
}

// SanitizeTitle strips any markup from a page title and truncates it
// SanitizeTitle 去除标题中的标签并截断
func SanitizeTitle(s string) string {
	s = html.UnescapeString(titlePolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > MaxPageTitleLength {
		s = string([]rune(s)[:MaxPageTitleLength])
	}
	return s
}
