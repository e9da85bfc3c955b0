package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Message is one entry of the provider's bulk send body (Expo wire
// format: a JSON array of these, answered with one ticket each).
type Message struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

type Ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

const TicketError = "error"

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	tickets, err := c.SendBatch(ctx, []Message{msg})
	if err != nil {
		return err
	}
	if len(tickets) > 0 && tickets[0].Status == TicketError {
		return fmt.Errorf("push rejected: %s", tickets[0].Message)
	}
	return nil
}

// SendBatch posts all messages in one provider call. Network errors and
// 5xx answers are retried with exponential backoff, two retries after
// the first attempt; 4xx answers are final. Per-recipient problems come
// back as error tickets, not as an error.
func (c *Client) SendBatch(ctx context.Context, msgs []Message) ([]Ticket, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encoding push batch: %w", err)
	}

	var tickets []Ticket
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("push provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("push provider returned %d", resp.StatusCode))
		}

		var out struct {
			Data []Ticket `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding push response: %w", err))
		}
		tickets = out.Data
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)); err != nil {
		return nil, err
	}

	return tickets, nil
}
