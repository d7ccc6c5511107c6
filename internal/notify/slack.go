// Package notify posts short messages to a Slack-compatible incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Message is the webhook payload. Only text is required.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

type Block struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PostEvent describes a newly created post.
type PostEvent struct {
	Board  string
	Title  string
	Author string
	URL    string
}

// Notifier sends messages to a webhook URL. A Notifier without a URL
// drops every message.
type Notifier struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

func New(webhookURL string) *Notifier {
	return &Notifier{
		url:     webhookURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		timeout: 10 * time.Second,
	}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Send delivers a message and returns once the webhook answers.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// NewPost announces a post (fire-and-forget).
func (n *Notifier) NewPost(event PostEvent) {
	if !n.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.Send(ctx, PostMessage(event)); err != nil {
			log.Printf("notify: new post %q: %v", event.Title, err)
		}
	}()
}

// PostMessage formats the announcement for a new post.
func PostMessage(event PostEvent) Message {
	text := fmt.Sprintf("New post on %s by %s: %s", event.Board, event.Author, event.Title)
	markdown := fmt.Sprintf("*New post on %s*\n<%s|%s>\nby %s", event.Board, event.URL, event.Title, event.Author)
	if event.URL == "" {
		markdown = fmt.Sprintf("*New post on %s*\n%s\nby %s", event.Board, event.Title, event.Author)
	}
	return Message{
		Text: text,
		Blocks: []Block{
			{Type: "section", Text: &Text{Type: "mrkdwn", Text: markdown}},
		},
	}
}
