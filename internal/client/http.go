package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/driftchat/driftchat-go/internal/model"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPClient implements ChatApi against the backend's REST surface.
type HTTPClient struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
	log     *zerolog.Logger
}

// NewHTTPClient builds a ChatApi backed by fasthttp.
func NewHTTPClient(baseURL, token string, logger *zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		timeout: defaultRequestTimeout,
		client: &fasthttp.Client{
			MaxConnsPerHost: 8,
			ReadTimeout:     defaultRequestTimeout,
			WriteTimeout:    defaultRequestTimeout,
		},
		log: logger,
	}
}

// CreateChannel implements ChatApi.
func (c *HTTPClient) CreateChannel(ctx context.Context, channel *model.Channel) (*model.Channel, error) {
	var out model.Channel
	if err := c.do(ctx, fasthttp.MethodPost, "/channels", channel, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage implements ChatApi.
func (c *HTTPClient) SendMessage(ctx context.Context, message *model.Message) (*model.Message, error) {
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(message.CID))
	var out model.Message
	if err := c.do(ctx, fasthttp.MethodPost, path, message, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMessage implements ChatApi.
func (c *HTTPClient) DeleteMessage(ctx context.Context, messageID string, hard bool) (*model.Message, error) {
	path := fmt.Sprintf("/messages/%s", url.PathEscape(messageID))
	if hard {
		path += "?hard=true"
	}
	var out model.Message
	if err := c.do(ctx, fasthttp.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendReaction implements ChatApi.
func (c *HTTPClient) SendReaction(ctx context.Context, reaction *model.Reaction) (*model.Reaction, error) {
	path := fmt.Sprintf("/messages/%s/reactions", url.PathEscape(reaction.MessageID))
	var out model.Reaction
	if err := c.do(ctx, fasthttp.MethodPost, path, reaction, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReaction implements ChatApi.
func (c *HTTPClient) DeleteReaction(ctx context.Context, messageID, reactionType string) (*model.Message, error) {
	path := fmt.Sprintf("/messages/%s/reactions/%s", url.PathEscape(messageID), url.PathEscape(reactionType))
	var out model.Message
	if err := c.do(ctx, fasthttp.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryMembers implements ChatApi.
func (c *HTTPClient) QueryMembers(ctx context.Context, cid string, limit, offset int) ([]*model.Member, error) {
	path := fmt.Sprintf("/channels/%s/members?limit=%d&offset=%d", url.PathEscape(cid), limit, offset)
	var out struct {
		Members []*model.Member `json:"members"`
	}
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// GetReplies implements ChatApi.
func (c *HTTPClient) GetReplies(ctx context.Context, parentID string, limit int, beforeID string) ([]*model.Message, error) {
	path := fmt.Sprintf("/messages/%s/replies?limit=%d", url.PathEscape(parentID), limit)
	if beforeID != "" {
		path += "&id_lt=" + url.QueryEscape(beforeID)
	}
	var out struct {
		Messages []*model.Message `json:"messages"`
	}
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// UpdateDraft implements ChatApi.
func (c *HTTPClient) UpdateDraft(ctx context.Context, draft *model.Draft) (*model.Draft, error) {
	path := fmt.Sprintf("/channels/%s/draft", url.PathEscape(draft.CID))
	var out model.Draft
	if err := c.do(ctx, fasthttp.MethodPut, path, draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDraft implements ChatApi.
func (c *HTTPClient) DeleteDraft(ctx context.Context, cid, parentID string) error {
	path := fmt.Sprintf("/channels/%s/draft", url.PathEscape(cid))
	if parentID != "" {
		path += "?parent_id=" + url.QueryEscape(parentID)
	}
	return c.do(ctx, fasthttp.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		req.SetBody(payload)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return NewNetworkError(err)
	}

	status := resp.StatusCode()
	if status >= 400 {
		var serverErr struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(resp.Body(), &serverErr)
		if serverErr.Message == "" {
			serverErr.Message = string(resp.Body())
		}
		c.log.Debug().Int("status", status).Str("path", path).Msg("request rejected")
		return NewServerError(status, serverErr.Code, serverErr.Message)
	}

	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

var _ ChatApi = (*HTTPClient)(nil)
