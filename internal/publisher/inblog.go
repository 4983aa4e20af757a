package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
)

const InblogEndpoint = "https://api.inblog.ai/v1/posts"

type Inblog struct {
	Endpoint string
	Client   *http.Client
}

type inblogPost struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	WriterID  string `json:"writerId"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type inblogResponse struct {
	ID  any    `json:"id"`
	URL string `json:"url"`
}

func (p *Inblog) Publish(ctx context.Context, channel *models.Channel, creds Credentials, rendered content.Rendered) (content.PublishResult, error) {
	if creds.APIKey == "" {
		return content.PublishResult{}, ErrMissingCredential
	}

	writer := creds.WriterID
	if writer == "" {
		writer = channel.ExternalID
	}
	payload := inblogPost{
		Title:    rendered.Title,
		Content:  rendered.HTML,
		Status:   "published",
		WriterID: writer,
	}
	if len(rendered.ImageURLs) > 0 {
		payload.Thumbnail = rendered.ImageURLs[0]
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return content.PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return content.PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return content.PublishResult{}, fmt.Errorf("inblog request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return content.PublishResult{}, err
	}
	if resp.StatusCode >= 300 {
		return content.PublishResult{}, fmt.Errorf("inblog returned %d: %s", resp.StatusCode, raw)
	}

	var out inblogResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return content.PublishResult{}, fmt.Errorf("decode inblog response: %w", err)
	}
	postURL := out.URL
	if postURL == "" {
		postURL = "https://inblog.ai/post/" + fmt.Sprint(out.ID)
	}
	return content.PublishResult{Status: content.PublishStatusPublished, URL: postURL}, nil
}
