// Package apiclient 是演示生成服务的 HTTP 客户端。
//
// 所有请求在存在凭证时附带 Authorization: Bearer 头，没有凭证不算错误。
// 失败统一归类为 ValidationError、TransientError、ClientError、ServerError 和 NotFoundError。
package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"demo-engine/app/config"
	"demo-engine/app/logger"
	"demo-engine/app/model"
	"demo-engine/app/session"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/text/unicode/norm"
	"resty.dev/v3"
)

// Client 演示服务客户端
type Client struct {
	client     *resty.Client
	tokens     session.TokenStore
	shareCache *cache.Cache
	logger     *logger.Logger
}

// New 创建客户端，tokens 在每次请求时读取
func New(cfg config.APIConfig, tokens session.TokenStore, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout() > 0 {
		client.SetTimeout(cfg.Timeout())
	}

	ttl := cfg.ShareCacheTTL()
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Client{
		client:     client,
		tokens:     tokens,
		shareCache: cache.New(ttl, 2*ttl),
		logger:     log,
	}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.client.Close()
}

// request 创建附带凭证和请求 ID 的请求
func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if cred, ok := c.tokens.Get(); ok {
		r.SetAuthToken(cred.AccessToken)
	}
	return r
}

// execute 发送请求并把失败归类；notFound 不为空时 404 映射为 NotFoundError
func (c *Client) execute(r *resty.Request, method, path, op string, notFound *NotFoundError) error {
	resp, err := r.Execute(method, path)
	if err != nil {
		if resp != nil && resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
			c.logger.Warnf("%s 响应解析失败: %v", op, err)
			return &ServerError{Status: resp.StatusCode(), Message: fmt.Sprintf("%s: 响应格式错误", op)}
		}
		c.logger.Debugf("%s 请求失败: %v", op, err)
		return &TransientError{Op: op, Err: err}
	}

	if resp.StatusCode() >= 400 {
		c.logger.Debugf("%s 失败，状态码: %d, 响应: %s", op, resp.StatusCode(), resp.String())
		return classify(resp.StatusCode(), resp.String(), notFound)
	}
	return nil
}

// GenerateDemo 提交生成请求，返回新演示的 ID
func (c *Client) GenerateDemo(ctx context.Context, prompt string, opts model.GenerateOptions) (string, error) {
	prompt = NormalizePrompt(prompt)
	if prompt == "" {
		return "", NewValidationError("prompt", "请输入想学习的内容")
	}

	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return "", NewValidationError("options", err.Error())
	}

	var out model.GenerateResponse
	r := c.request(ctx).
		SetBody(model.GenerateRequest{
			Prompt:   prompt,
			Language: opts.Language,
			Quality:  opts.Quality,
			Voice:    opts.Voice,
		}).
		SetResult(&out)
	if err := c.execute(r, http.MethodPost, "/generate", "生成演示", nil); err != nil {
		return "", err
	}
	if out.DemoID == "" {
		return "", &ServerError{Status: http.StatusOK, Message: "生成演示: 响应缺少 demo_id"}
	}

	c.logger.Infof("演示已提交: DemoID=%s", out.DemoID)
	return out.DemoID, nil
}

// GetDemo 获取演示当前快照
func (c *Client) GetDemo(ctx context.Context, id string) (*model.Demo, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewValidationError("id", "演示 ID 为空")
	}

	var demo model.Demo
	r := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&demo)
	if err := c.execute(r, http.MethodGet, "/demo/{id}", "获取演示", &NotFoundError{Resource: "demo", ID: id}); err != nil {
		return nil, err
	}
	if demo.Status == "" {
		return nil, &ServerError{Status: http.StatusOK, Message: "获取演示: 响应缺少状态"}
	}
	if demo.ID == "" {
		demo.ID = id
	}

	demo.Normalize()
	return &demo, nil
}

// GetHistory 获取历史记录分页
func (c *Client) GetHistory(ctx context.Context, page, pageSize int) (*model.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var out model.HistoryPage
	r := c.request(ctx).
		SetQueryParams(map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(pageSize),
		}).
		SetResult(&out)
	if err := c.execute(r, http.MethodGet, "/history", "获取历史记录", nil); err != nil {
		return nil, err
	}

	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	if out.Page < 1 {
		out.Page = page
	}
	if out.Items == nil {
		out.Items = []model.Demo{}
	}
	for i := range out.Items {
		if out.Items[i].Status == "" {
			return nil, &ServerError{Status: http.StatusOK, Message: "获取历史记录: 响应缺少状态"}
		}
		out.Items[i].Normalize()
	}
	return &out, nil
}

// DeleteDemo 删除演示，只关心服务端是否确认
func (c *Client) DeleteDemo(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return NewValidationError("id", "演示 ID 为空")
	}

	r := c.request(ctx).SetPathParam("id", id)
	if err := c.execute(r, http.MethodDelete, "/demo/{id}", "删除演示", &NotFoundError{Resource: "demo", ID: id}); err != nil {
		return err
	}

	c.shareCache.Delete(id)
	c.logger.Infof("演示已删除: DemoID=%s", id)
	return nil
}

// DownloadDemo 把视频写入 w，返回写入的字节数
func (c *Client) DownloadDemo(ctx context.Context, id string, w io.Writer) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, NewValidationError("id", "演示 ID 为空")
	}

	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetHeader("Accept", "application/octet-stream").
		SetDoNotParseResponse(true).
		Get("/demo/{id}/download")
	if err != nil {
		return 0, &TransientError{Op: "下载演示", Err: err}
	}
	body := resp.Body
	defer body.Close()

	if resp.StatusCode() >= 400 {
		data, _ := io.ReadAll(io.LimitReader(body, 64<<10))
		return 0, classify(resp.StatusCode(), string(data), &NotFoundError{Resource: "demo", ID: id})
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return n, &TransientError{Op: "下载演示", Err: err}
	}

	c.logger.Infof("演示已下载: DemoID=%s, 大小: %d 字节", id, n)
	return n, nil
}

// ShareDemo 获取分享链接，同一演示的链接会缓存一段时间
func (c *Client) ShareDemo(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", NewValidationError("id", "演示 ID 为空")
	}
	if cached, found := c.shareCache.Get(id); found {
		c.logger.Debugf("命中分享链接缓存: DemoID=%s", id)
		return cached.(string), nil
	}

	var out model.ShareResponse
	r := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out)
	if err := c.execute(r, http.MethodPost, "/demo/{id}/share", "分享演示", &NotFoundError{Resource: "demo", ID: id}); err != nil {
		return "", err
	}
	if out.ShareURL == "" {
		return "", &ServerError{Status: http.StatusOK, Message: "分享演示: 响应缺少 share_url"}
	}

	c.shareCache.Set(id, out.ShareURL, cache.DefaultExpiration)
	return out.ShareURL, nil
}

// GetCredits 获取剩余额度
func (c *Client) GetCredits(ctx context.Context) (*model.Credits, error) {
	var out model.Credits
	r := c.request(ctx).SetResult(&out)
	if err := c.execute(r, http.MethodGet, "/user/credits", "获取额度", nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// NormalizePrompt 去掉首尾空白并统一为 NFC
func NormalizePrompt(prompt string) string {
	return norm.NFC.String(strings.TrimSpace(prompt))
}
