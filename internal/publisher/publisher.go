// Package publisher delivers rendered posts to blog platforms.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/pkg/utils"
)

var (
	ErrMissingCredential = errors.New("channel credential missing")
	ErrMissingExternalID = errors.New("channel external id missing")
)

// Platform publishes to one kind of blog.
type Platform interface {
	Publish(ctx context.Context, channel *models.Channel, creds Credentials, rendered content.Rendered) (content.PublishResult, error)
}

// Credentials is the decrypted form of Channel.CredentialData. A credential
// stored as a bare string is read as an access token.
type Credentials struct {
	AccessToken string `json:"access_token"`
	APIKey      string `json:"api_key"`
	WriterID    string `json:"writer_id"`
}

func ParseCredentials(plain string) Credentials {
	plain = strings.TrimSpace(plain)
	var c Credentials
	if strings.HasPrefix(plain, "{") && json.Unmarshal([]byte(plain), &c) == nil {
		return c
	}
	return Credentials{AccessToken: plain, APIKey: plain}
}

// Registry routes a post to the platform registered for the channel type.
// Channel types with no registered platform get a manual-copy result.
type Registry struct {
	platforms     map[string]Platform
	encryptionKey string
}

func NewRegistry(encryptionKey string) *Registry {
	return &Registry{platforms: map[string]Platform{}, encryptionKey: encryptionKey}
}

func (r *Registry) Register(platformType string, p Platform) {
	r.platforms[strings.ToLower(platformType)] = p
}

// NewDefaultRegistry wires every supported platform with its production
// endpoint.
func NewDefaultRegistry(encryptionKey string, httpClient *http.Client) *Registry {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	r := NewRegistry(encryptionKey)
	r.Register(models.PlatformBlogger, &Blogger{})
	r.Register(models.PlatformTistory, &Tistory{Endpoint: TistoryEndpoint, Client: httpClient})
	r.Register(models.PlatformInblog, &Inblog{Endpoint: InblogEndpoint, Client: httpClient})
	r.Register(models.PlatformNaver, Manual{})
	return r
}

func (r *Registry) Publish(ctx context.Context, channel *models.Channel, rendered content.Rendered) (content.PublishResult, error) {
	platform := strings.ToLower(channel.PlatformType)
	p, ok := r.platforms[platform]
	if !ok {
		slog.Warn("no publisher for platform, using manual copy", "platform", channel.PlatformType, "channel_id", channel.ID)
		p = Manual{}
	}

	var creds Credentials
	if channel.CredentialData != "" {
		plain, err := utils.DecryptCredential(channel.CredentialData, r.encryptionKey)
		if err != nil {
			slog.Info(err.Error())
			return content.PublishResult{}, fmt.Errorf("open channel credential: %w", err)
		}
		creds = ParseCredentials(plain)
	}

	rendered.HTML = EmbedImages(rendered.HTML, rendered.ImageURLs, rendered.Title)
	result, err := p.Publish(ctx, channel, creds, rendered)
	if err != nil {
		slog.Error("publish failed", "platform", platform, "channel_id", channel.ID, "error", err)
		return content.PublishResult{}, err
	}
	slog.Info("post delivered", "platform", platform, "channel_id", channel.ID, "status", result.Status, "url", result.URL)
	return result, nil
}

// Manual leaves the post for the owner to copy into the blog editor.
type Manual struct{}

func (Manual) Publish(context.Context, *models.Channel, Credentials, content.Rendered) (content.PublishResult, error) {
	return content.PublishResult{Status: content.PublishStatusManualCopy}, nil
}

// EmbedImages spreads image tags between the top-level paragraphs of body.
// Images without a matching paragraph break are appended at the end.
func EmbedImages(body string, urls []string, alt string) string {
	if len(urls) == 0 {
		return body
	}

	tags := make([]string, len(urls))
	for i, u := range urls {
		if strings.Contains(body, u) {
			continue
		}
		tags[i] = fmt.Sprintf(`<p><img src="%s" alt="%s" loading="lazy"></p>`, html.EscapeString(u), html.EscapeString(alt))
	}

	parts := strings.SplitAfter(body, "</p>")
	var b strings.Builder
	next := 0
	step := len(parts) / (len(urls) + 1)
	if step < 1 {
		step = 1
	}
	for i, part := range parts {
		b.WriteString(part)
		if next < len(tags) && i < len(parts)-1 && (i+1)%step == 0 {
			b.WriteString(tags[next])
			next++
		}
	}
	for ; next < len(tags); next++ {
		b.WriteString(tags[next])
	}
	return b.String()
}
