package publisher

import (
	"context"
	"fmt"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/blogger/v3"
	"google.golang.org/api/option"
)

// Blogger inserts posts through the Blogger v3 API. The channel ExternalID
// is the blog id.
type Blogger struct {
	// Endpoint overrides the API base path.
	Endpoint string
}

func (b *Blogger) Publish(ctx context.Context, channel *models.Channel, creds Credentials, rendered content.Rendered) (content.PublishResult, error) {
	if channel.ExternalID == "" {
		return content.PublishResult{}, ErrMissingExternalID
	}
	if creds.AccessToken == "" {
		return content.PublishResult{}, ErrMissingCredential
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken}))
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if b.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(b.Endpoint))
	}

	service, err := blogger.NewService(ctx, opts...)
	if err != nil {
		return content.PublishResult{}, fmt.Errorf("create blogger service: %w", err)
	}

	post, err := service.Posts.Insert(channel.ExternalID, &blogger.Post{
		Kind:    "blogger#post",
		Title:   rendered.Title,
		Content: rendered.HTML,
		Labels:  rendered.Keywords,
	}).Context(ctx).Do()
	if err != nil {
		return content.PublishResult{}, fmt.Errorf("blogger insert: %w", err)
	}

	return content.PublishResult{Status: content.PublishStatusPublished, URL: post.Url}, nil
}
