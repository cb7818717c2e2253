package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Client is the outward credit primitive: it asks the payments system to
// credit an amount to a payable identity. A non-2xx answer fails the whole
// ledger transition.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type creditRequest struct {
	Account uuid.UUID `json:"account"`
	Amount  uint64    `json:"amount"`
}

func (c *Client) Credit(ctx context.Context, account uuid.UUID, amount uint64) error {
	body, err := json.Marshal(creditRequest{Account: account, Amount: amount})
	if err != nil {
		return errors.Wrap(err, "marshal credit request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/credits", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build credit request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "post credit")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf("credit rejected: status %d", resp.StatusCode)
	}
	return nil
}
