package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
)

const TistoryEndpoint = "https://www.tistory.com/apis/post/write"

// Tistory writes posts through the Tistory open API. The channel
// ExternalID is the blog name.
type Tistory struct {
	Endpoint string
	Client   *http.Client
}

type tistoryResponse struct {
	Tistory struct {
		Status       string `json:"status"`
		PostID       string `json:"postId"`
		URL          string `json:"url"`
		ErrorMessage string `json:"error_message"`
	} `json:"tistory"`
}

func (t *Tistory) Publish(ctx context.Context, channel *models.Channel, creds Credentials, rendered content.Rendered) (content.PublishResult, error) {
	if channel.ExternalID == "" {
		return content.PublishResult{}, ErrMissingExternalID
	}
	if creds.AccessToken == "" {
		return content.PublishResult{}, ErrMissingCredential
	}

	form := url.Values{}
	form.Set("access_token", creds.AccessToken)
	form.Set("output", "json")
	form.Set("blogName", channel.ExternalID)
	form.Set("title", rendered.Title)
	form.Set("content", rendered.HTML)
	form.Set("visibility", "3")
	form.Set("category", "0")
	form.Set("tag", strings.Join(rendered.Keywords, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return content.PublishResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return content.PublishResult{}, fmt.Errorf("tistory request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return content.PublishResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return content.PublishResult{}, fmt.Errorf("tistory returned %d: %s", resp.StatusCode, body)
	}

	var out tistoryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return content.PublishResult{}, fmt.Errorf("decode tistory response: %w", err)
	}
	if out.Tistory.Status != "200" {
		msg := out.Tistory.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return content.PublishResult{}, errors.New("tistory: " + msg)
	}

	return content.PublishResult{Status: content.PublishStatusPublished, URL: out.Tistory.URL}, nil
}
