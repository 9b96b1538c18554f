// Package dataservice is the HTTP client for the history backend:
// paged message and thread fetches plus message sends. Responses arrive
// in a couple of wire dialects; everything is normalized before it
// reaches the store.
package dataservice

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"roomsync/pkg/models"
)

// Page is one fetched slice of thread history, oldest-last as the
// backend returns it.
type Page struct {
	Messages []models.MessagePatch
	Parts    []models.PartPatch
	Info     models.PageInfo
}

// Client talks to the history backend over fasthttp.
type Client struct {
	baseURL string
	hc      *fasthttp.Client
	timeout time.Duration
}

// New returns a client for the backend at baseURL (no trailing slash).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		hc: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		timeout: timeout,
	}
}

// wirePage tolerates both snake_case and camelCase pagination envelopes.
type wirePage struct {
	Messages   []models.MessagePatch `json:"messages"`
	Parts      []models.PartPatch    `json:"message_parts"`
	Pagination wirePagination        `json:"pagination"`
}

type wirePagination struct {
	HasNextPage     bool   `json:"has_next_page"`
	HasNextPageAlt  *bool  `json:"hasNextPage"`
	NextCursor      string `json:"next_cursor"`
	StartCursor     string `json:"startCursor"`
	EndCursorLegacy string `json:"cursor"`
}

// normalize maps whichever cursor field the backend populated into the
// canonical PageInfo.
func (w wirePagination) normalize() models.PageInfo {
	info := models.PageInfo{HasNextPage: w.HasNextPage, Primed: true}
	if w.HasNextPageAlt != nil {
		info.HasNextPage = *w.HasNextPageAlt
	}
	switch {
	case w.NextCursor != "":
		info.Cursor = w.NextCursor
	case w.StartCursor != "":
		info.Cursor = w.StartCursor
	default:
		info.Cursor = w.EndCursorLegacy
	}
	return info
}

// FetchMessages requests up to limit messages of the thread older than
// cursor. An empty cursor fetches the newest page.
func (c *Client) FetchMessages(threadID, cursor string, limit int) (Page, error) {
	if threadID == "" {
		return Page{}, fmt.Errorf("empty thread id")
	}
	if limit <= 0 {
		limit = 50
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := fmt.Sprintf("%s/threads/%s/messages?limit=%d", c.baseURL, threadID, limit)
	if cursor != "" {
		uri += "&cursor=" + cursor
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.hc.DoTimeout(req, resp, c.timeout); err != nil {
		return Page{}, fmt.Errorf("fetch thread %s: %w", threadID, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return Page{}, fmt.Errorf("fetch thread %s: status %d", threadID, resp.StatusCode())
	}

	var wp wirePage
	if err := json.Unmarshal(resp.Body(), &wp); err != nil {
		return Page{}, fmt.Errorf("decode thread %s page: %w", threadID, err)
	}
	return Page{Messages: wp.Messages, Parts: wp.Parts, Info: wp.Pagination.normalize()}, nil
}

// ThreadsPage is one fetched slice of a room's thread list.
type ThreadsPage struct {
	Threads []models.ThreadPatch
	Info    models.PageInfo
}

// FetchThread requests one thread snapshot.
func (c *Client) FetchThread(threadID string) (models.ThreadPatch, error) {
	if threadID == "" {
		return models.ThreadPatch{}, fmt.Errorf("empty thread id")
	}
	var th models.ThreadPatch
	if err := c.getJSON(fmt.Sprintf("%s/threads/%s", c.baseURL, threadID), &th); err != nil {
		return models.ThreadPatch{}, fmt.Errorf("fetch thread %s: %w", threadID, err)
	}
	return th, nil
}

// FetchThreads requests up to limit threads of the room older than cursor.
func (c *Client) FetchThreads(roomID, cursor string, limit int) (ThreadsPage, error) {
	if roomID == "" {
		return ThreadsPage{}, fmt.Errorf("empty room id")
	}
	if limit <= 0 {
		limit = 50
	}
	uri := fmt.Sprintf("%s/rooms/%s/threads?limit=%d", c.baseURL, roomID, limit)
	if cursor != "" {
		uri += "&cursor=" + cursor
	}
	var wp struct {
		Threads    []models.ThreadPatch `json:"threads"`
		Pagination wirePagination       `json:"pagination"`
	}
	if err := c.getJSON(uri, &wp); err != nil {
		return ThreadsPage{}, fmt.Errorf("fetch room %s threads: %w", roomID, err)
	}
	return ThreadsPage{Threads: wp.Threads, Info: wp.Pagination.normalize()}, nil
}

// SendMessage posts a new message on behalf of a human member. The
// correlation id travels as response_id so the confirmed message can
// suppress its local placeholder.
func (c *Client) SendMessage(threadID, senderID, content, correlationID string) (models.MessagePatch, error) {
	return c.postMessage(threadID, map[string]string{
		"sender_id":   senderID,
		"content":     content,
		"response_id": correlationID,
	}, "messages")
}

// SendAgentMessage posts a message authored by an agent member.
func (c *Client) SendAgentMessage(threadID, agentID, content string) (models.MessagePatch, error) {
	return c.postMessage(threadID, map[string]string{
		"agent_id": agentID,
		"content":  content,
	}, "agent-messages")
}

func (c *Client) postMessage(threadID string, body map[string]string, resource string) (models.MessagePatch, error) {
	if threadID == "" {
		return models.MessagePatch{}, fmt.Errorf("empty thread id")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return models.MessagePatch{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/threads/%s/%s", c.baseURL, threadID, resource))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := c.hc.DoTimeout(req, resp, c.timeout); err != nil {
		return models.MessagePatch{}, fmt.Errorf("send to thread %s: %w", threadID, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK && resp.StatusCode() != fasthttp.StatusCreated {
		return models.MessagePatch{}, fmt.Errorf("send to thread %s: status %d", threadID, resp.StatusCode())
	}
	var mp models.MessagePatch
	if err := json.Unmarshal(resp.Body(), &mp); err != nil {
		return models.MessagePatch{}, fmt.Errorf("decode sent message: %w", err)
	}
	return mp, nil
}

func (c *Client) getJSON(uri string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.hc.DoTimeout(req, resp, c.timeout); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return json.Unmarshal(resp.Body(), out)
}
