package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type runRequest struct {
	Workflow map[string]any    `json:"workflow,omitempty"`
	Inputs   map[string]string `json:"inputs"`
}

type runResponse struct {
	Images []struct {
		Image       string `json:"image"`
		ImageBase64 string `json:"image_base64"`
	} `json:"images"`
}

// Client renders images through a workflow-runner HTTP endpoint.
type Client struct {
	baseURL  string
	workflow map[string]any
	http     *http.Client
}

func NewClient(baseURL string, timeout time.Duration, workflow map[string]any) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		workflow: workflow,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Render(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(runRequest{Workflow: c.workflow, Inputs: map[string]string{"prompt": prompt}})
	if err != nil {
		return nil, newError(KindUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/workflow/run", bytes.NewReader(body))
	if err != nil {
		return nil, newError(KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("renderer request failed", "error", err)
		if KindOf(err) == KindTimeout {
			return nil, newError(KindTimeout, err)
		}
		return nil, newError(KindConnection, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return nil, newError(KindTimeout, fmt.Errorf("renderer returned %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, newError(KindBadResponse, fmt.Errorf("renderer returned %d: %s", resp.StatusCode, msg))
	}

	var out runResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if KindOf(err) == KindTimeout {
			return nil, newError(KindTimeout, err)
		}
		return nil, newError(KindBadResponse, fmt.Errorf("decode renderer response: %w", err))
	}
	if len(out.Images) == 0 {
		return nil, newError(KindBadResponse, errors.New("renderer returned no images"))
	}

	encoded := out.Images[0].Image
	if encoded == "" {
		encoded = out.Images[0].ImageBase64
	}
	if encoded == "" {
		return nil, newError(KindBadResponse, errors.New("renderer payload missing image"))
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, newError(KindBadResponse, fmt.Errorf("decode image: %w", err))
	}
	return data, nil
}
