package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"richmenu_console/internal/config"
)

// Client 封装与 LINE Messaging API 的 HTTP 通讯
// Token 由调用方逐次传入，客户端本身不保存任何凭证
type Client struct {
	apiBaseURL     string
	dataAPIBaseURL string

	httpClient *http.Client
}

// Option 自定义客户端行为
type Option func(*Client)

// WithHTTPClient 自定义 HTTP 客户端（测试时使用）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient 根据配置创建 LINE 客户端
func NewClient(cfg config.LineConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" || strings.TrimSpace(cfg.DataAPIBaseURL) == "" {
		return nil, fmt.Errorf("line api base urls cannot be empty")
	}

	client := &Client{
		apiBaseURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		dataAPIBaseURL: strings.TrimRight(cfg.DataAPIBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// CreateRichMenu 注册菜单配置，返回 richMenuId
func (c *Client) CreateRichMenu(ctx context.Context, token string, body []byte) (string, error) {
	var out struct {
		RichMenuID string `json:"richMenuId"`
	}

	endpoint := c.apiBaseURL + "/v2/bot/richmenu"
	if err := c.do(ctx, http.MethodPost, endpoint, token, "application/json", body, &out); err != nil {
		return "", err
	}
	if out.RichMenuID == "" {
		return "", fmt.Errorf("line create rich menu: empty richMenuId in response")
	}
	return out.RichMenuID, nil
}

// UploadRichMenuImage 上传菜单背景图
func (c *Client) UploadRichMenuImage(ctx context.Context, token, richMenuID, contentType string, image []byte) error {
	endpoint := fmt.Sprintf("%s/v2/bot/richmenu/%s/content", c.dataAPIBaseURL, url.PathEscape(richMenuID))
	return c.do(ctx, http.MethodPost, endpoint, token, contentType, image, nil)
}

// SetDefaultRichMenu 将菜单设为所有用户的默认菜单
func (c *Client) SetDefaultRichMenu(ctx context.Context, token, richMenuID string) error {
	endpoint := fmt.Sprintf("%s/v2/bot/user/all/richmenu/%s", c.apiBaseURL, url.PathEscape(richMenuID))
	return c.do(ctx, http.MethodPost, endpoint, token, "", nil, nil)
}

// ListRichMenus 返回上游菜单列表（原样的 JSON）
func (c *Client) ListRichMenus(ctx context.Context, token string) (json.RawMessage, error) {
	var out json.RawMessage
	endpoint := c.apiBaseURL + "/v2/bot/richmenu/list"
	if err := c.do(ctx, http.MethodGet, endpoint, token, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRichMenu 删除菜单
func (c *Client) DeleteRichMenu(ctx context.Context, token, richMenuID string) error {
	endpoint := fmt.Sprintf("%s/v2/bot/richmenu/%s", c.apiBaseURL, url.PathEscape(richMenuID))
	return c.do(ctx, http.MethodDelete, endpoint, token, "", nil, nil)
}

// GetDefaultRichMenuID 查询当前默认菜单；未设置时返回空字符串
func (c *Client) GetDefaultRichMenuID(ctx context.Context, token string) (string, error) {
	var out struct {
		RichMenuID string `json:"richMenuId"`
	}

	endpoint := c.apiBaseURL + "/v2/bot/user/all/richmenu"
	if err := c.do(ctx, http.MethodGet, endpoint, token, "", nil, &out); err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return out.RichMenuID, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token, contentType string, body []byte, out interface{}) error {
	if token == "" {
		return fmt.Errorf("line access token is empty")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", authorization(token))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request line api failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read line response failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode line response failed: %w", err)
		}
	}

	return nil
}

// authorization 已带认证方案（如 "Bearer xxx"）的值原样使用，否则按 Bearer token 处理
func authorization(token string) string {
	if strings.Contains(token, " ") {
		return token
	}
	return "Bearer " + token
}
