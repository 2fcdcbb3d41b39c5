// Package client is the HTTP and websocket client of the page notes API
// Package client 页面笔记 API 客户端
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/page-notes-service/internal/dto"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	// DefaultTimeout 单次请求超时
	DefaultTimeout = 10 * time.Second
	// nonceRefreshMargin 令牌在过期前多久重新获取
	nonceRefreshMargin = time.Minute

	nonceHeader = "X-Request-Nonce"
)

// Config 客户端配置
type Config struct {
	// Server 服务地址，例如 http://127.0.0.1:9000
	Server string
	// Token 宿主平台签发的用户 Token
	Token string
	// Lang 服务端消息语言 en / zh-cn
	Lang    string
	Timeout time.Duration
	// HTTPClient 可选，测试时注入
	HTTPClient *http.Client
}

// Client 页面笔记 API 客户端，并发安全
type Client struct {
	base  *url.URL
	token string
	lang  string
	http  *http.Client

	mu        sync.Mutex
	nonce     string
	nonceExpy time.Time
}

// APIError 服务端返回的业务错误
type APIError struct {
	Code    int
	Message string
	Details string
	Data    []byte
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// Is 按错误码比较
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// ConflictNote returns the server copy carried by a version conflict, nil otherwise
// ConflictNote 版本冲突时返回服务端最新笔记
func (e *APIError) ConflictNote() *dto.NoteDTO {
	if e.Code != code.ErrorNoteVersionConflict.Code() || len(e.Data) == 0 {
		return nil
	}
	note := &dto.NoteDTO{}
	if err := sonic.Unmarshal(e.Data, note); err != nil {
		return nil
	}
	return note
}

// envelope 统一响应结构
type envelope struct {
	Code    int         `json:"code"`
	Status  bool        `json:"status"`
	Message interface{} `json:"message"`
	Data    sonicRaw    `json:"data"`
	Details string      `json:"details"`
}

// sonicRaw 延迟解析的 data 字段
type sonicRaw []byte

func (r *sonicRaw) UnmarshalJSON(b []byte) error {
	*r = append((*r)[:0], b...)
	return nil
}

// New 创建客户端
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Server, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid server address %q", cfg.Server)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, token: cfg.Token, lang: cfg.Lang, http: hc}, nil
}

// ListForPage 获取页面笔记
func (c *Client) ListForPage(ctx context.Context, pageURL string) ([]*dto.NoteDTO, error) {
	var notes []*dto.NoteDTO
	q := url.Values{"pageUrl": {pageURL}}
	if err := c.call(ctx, http.MethodGet, "/api/notes", q, nil, false, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// ListAll 分页获取全部笔记
func (c *Client) ListAll(ctx context.Context, page, pageSize int) ([]*dto.NoteDTO, int, error) {
	var out struct {
		List  []*dto.NoteDTO `json:"list"`
		Pager struct {
			TotalRows int `json:"totalRows"`
		} `json:"pager"`
	}
	q := url.Values{"page": {strconv.Itoa(page)}, "pageSize": {strconv.Itoa(pageSize)}}
	if err := c.call(ctx, http.MethodGet, "/api/notes/all", q, nil, false, &out); err != nil {
		return nil, 0, err
	}
	return out.List, out.Pager.TotalRows, nil
}

// Add 新增笔记
func (c *Client) Add(ctx context.Context, pageURL, pageTitle, content string) (*dto.NoteDTO, error) {
	note := &dto.NoteDTO{}
	body := &dto.NoteAddRequest{PageURL: pageURL, PageTitle: pageTitle, Content: content}
	if err := c.call(ctx, http.MethodPost, "/api/note", nil, body, true, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Update 修改笔记，version 为 0 时不做版本校验
func (c *Client) Update(ctx context.Context, id int64, content string, version int64) (*dto.NoteDTO, error) {
	note := &dto.NoteDTO{}
	body := &dto.NoteUpdateRequest{ID: id, Content: content, Version: version}
	if err := c.call(ctx, http.MethodPut, "/api/note", nil, body, true, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Delete 删除笔记
func (c *Client) Delete(ctx context.Context, id int64) error {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return c.call(ctx, http.MethodDelete, "/api/note", q, nil, true, nil)
}

// Version 获取服务端版本
func (c *Client) Version(ctx context.Context) (*dto.VersionDTO, error) {
	v := &dto.VersionDTO{}
	if err := c.call(ctx, http.MethodGet, "/api/version", nil, nil, false, v); err != nil {
		return nil, err
	}
	return v, nil
}

// call 发送请求；mutating 为 true 时携带请求校验令牌，令牌失效时重新获取并重试一次
func (c *Client) call(ctx context.Context, method, path string, q url.Values, body interface{}, mutating bool, out interface{}) error {
	err := c.do(ctx, method, path, q, body, out, mutating)
	if mutating && IsCode(err, code.ErrorInvalidRequestNonce) {
		c.dropNonce()
		err = c.do(ctx, method, path, q, body, out, mutating)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out interface{}, mutating bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.lang != "" {
		req.Header.Set("lang", c.lang)
	}
	if mutating {
		nonce, err := c.Nonce(ctx)
		if err != nil {
			return err
		}
		req.Header.Set(nonceHeader, nonce)
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s %s: unexpected status %s", req.Method, req.URL.Path, resp.Status)
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return errors.Wrap(err, "decode response")
	}
	if !env.Status {
		return &APIError{
			Code:    env.Code,
			Message: fmt.Sprint(env.Message),
			Details: env.Details,
			Data:    env.Data,
		}
	}
	if out != nil && len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decode data")
		}
	}
	return nil
}

// Nonce 返回缓存的请求校验令牌，快过期时重新获取
func (c *Client) Nonce(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nonce != "" && time.Until(c.nonceExpy) > nonceRefreshMargin {
		return c.nonce, nil
	}

	u := *c.base
	u.Path = c.base.Path + "/api/nonce"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	var out dto.NonceDTO
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	c.nonce = out.Nonce
	c.nonceExpy = time.UnixMilli(out.ExpiresAt)
	return c.nonce, nil
}

func (c *Client) dropNonce() {
	c.mu.Lock()
	c.nonce = ""
	c.mu.Unlock()
}

// IsCode 判断 err 是否为指定业务错误码
func IsCode(err error, target *code.Code) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == target.Code()
}
