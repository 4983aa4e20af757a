package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/transfer"
	"github.com/maheshrc27/autopost/pkg/utils"
)

var ErrChannelNotFound = errors.New("channel not found")

type ChannelService interface {
	AddChannel(ctx context.Context, ownerID int64, cc *transfer.ChannelCreation) (*models.Channel, error)
	ListChannels(ctx context.Context, ownerID int64) ([]*models.Channel, error)
	RemoveChannel(ctx context.Context, ownerID, channelID int64) error
}

type channelService struct {
	cr            repository.ChannelRepository
	encryptionKey string
}

func NewChannelService(cr repository.ChannelRepository, encryptionKey string) ChannelService {
	return &channelService{
		cr:            cr,
		encryptionKey: encryptionKey,
	}
}

func (s *channelService) AddChannel(ctx context.Context, ownerID int64, cc *transfer.ChannelCreation) (*models.Channel, error) {
	platform := strings.ToLower(strings.TrimSpace(cc.PlatformType))
	if platform == "" {
		return nil, errors.New("platform type cannot be empty")
	}
	if cc.ImageCount < 0 {
		return nil, errors.New("image count cannot be negative")
	}

	length := strings.ToUpper(cc.PostLength)
	switch length {
	case models.LengthShort, models.LengthMedium, models.LengthLong:
	case "":
		length = models.LengthMedium
	default:
		return nil, fmt.Errorf("invalid post length %q", cc.PostLength)
	}

	var sealed string
	if cc.Credential != "" {
		var err error
		sealed, err = utils.EncryptCredential(cc.Credential, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("seal channel credential: %w", err)
		}
	}

	channel := &models.Channel{
		OwnerID:        ownerID,
		PlatformType:   platform,
		Alias:          cc.Alias,
		BlogURL:        cc.BlogURL,
		ExternalID:     cc.ExternalID,
		CredentialData: sealed,
		Persona:        cc.Persona,
		DefaultTopic:   cc.DefaultTopic,
		CustomPrompt:   cc.CustomPrompt,
		PostLength:     length,
		ImageCount:     cc.ImageCount,
	}
	if _, err := s.cr.Create(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *channelService) ListChannels(ctx context.Context, ownerID int64) ([]*models.Channel, error) {
	return s.cr.ListByOwner(ctx, ownerID)
}

func (s *channelService) RemoveChannel(ctx context.Context, ownerID, channelID int64) error {
	channel, err := s.cr.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel == nil || channel.OwnerID != ownerID {
		return ErrChannelNotFound
	}
	return s.cr.Remove(ctx, channelID, ownerID)
}
