// Package client calls the gateway's control-plane surface from another
// process. It is a thin request/response wrapper; all results are boolean
// "accepted or not", matching the fire-and-forget nature of the commands.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"PPGateway/logger"
)

type ControlClient struct {
	baseURL   string
	authToken string
	httpc     *http.Client
}

func NewControlClient(baseURL, authToken string, timeout time.Duration) *ControlClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ControlClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpc:     &http.Client{Timeout: timeout},
	}
}

func (c *ControlClient) SendText(ctx context.Context, userID int64, payload string) bool {
	return c.post(ctx, "/send-text", map[string]any{
		"userId":  userID,
		"payload": payload,
	})
}

func (c *ControlClient) BroadcastText(ctx context.Context, payload string, excludedUserIDs []int64) bool {
	return c.post(ctx, "/broadcast-text", map[string]any{
		"payload":         payload,
		"excludedUserIds": excludedUserIDs,
	})
}

func (c *ControlClient) BroadcastBinary(ctx context.Context, payload []byte, excludedUserIDs []int64) bool {
	return c.post(ctx, "/broadcast-binary", map[string]any{
		"payload":         base64.StdEncoding.EncodeToString(payload),
		"excludedUserIds": excludedUserIDs,
	})
}

func (c *ControlClient) MulticastText(ctx context.Context, payload string, userIDs []int64) bool {
	return c.post(ctx, "/multicast-text", map[string]any{
		"payload": payload,
		"userIds": userIDs,
	})
}

func (c *ControlClient) MulticastBinary(ctx context.Context, payload []byte, userIDs []int64) bool {
	return c.post(ctx, "/multicast-binary", map[string]any{
		"payload": base64.StdEncoding.EncodeToString(payload),
		"userIds": userIDs,
	})
}

func (c *ControlClient) post(ctx context.Context, endpoint string, body map[string]any) bool {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Errorf("[control-client] marshal body for %s: %v", endpoint, err)
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		logger.Errorf("[control-client] build request for %s: %v", endpoint, err)
		return false
	}
	req.Header.Set("Authorization", c.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		logger.Errorf("[control-client] request %s failed: %v", endpoint, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		logger.Warnf("[control-client] request %s status=%d", endpoint, resp.StatusCode)
		return false
	}
	return true
}
