// Package mailer is the outbound email boundary. Delivery is stubbed: Send
// validates and acknowledges without contacting a provider, which is all the
// product's dummy send endpoint requires.
package mailer

import (
	"context"
	"errors"
	"strings"
)

type Config struct {
	From   string `split_words:"true" default:"noreply@careline.local"`
	DryRun bool   `split_words:"true" default:"true"`
}

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Receipt struct {
	Status  string  `json:"status"`
	Note    string  `json:"message"`
	Payload Message `json:"payload"`
}

type Client struct {
	from   string
	dryRun bool
}

func NewClient(cfg Config) (*Client, error) {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errors.New("mailer from address is required")
	}
	return &Client{
		from:   from,
		dryRun: cfg.DryRun,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) From() string {
	return c.from
}

func (c *Client) Send(_ context.Context, msg Message) (Receipt, error) {
	if strings.TrimSpace(msg.To) == "" {
		return Receipt{}, errors.New("recipient is required")
	}
	if !c.dryRun {
		return Receipt{}, errors.New("mail delivery is not configured")
	}
	return Receipt{
		Status:  "ok",
		Note:    "Dummy send: email not actually delivered.",
		Payload: msg,
	}, nil
}
