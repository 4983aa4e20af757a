package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/maheshrc27/autopost/configs"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

type AuthService interface {
	AuthURL(state string) string
	LoginCallback(ctx context.Context, code string, referrerID *int64) (*models.Account, error)
}

type authService struct {
	oauth    *oauth2.Config
	accounts AccountService
}

// NewAuthService signs accounts in with Google. A first sign-in opens the
// account, which grants the signup bonus.
func NewAuthService(cfg config.Google, accounts AccountService) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		accounts: accounts,
	}
}

func (s *authService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (s *authService) LoginCallback(ctx context.Context, code string, referrerID *int64) (*models.Account, error) {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return nil, err
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return nil, err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	userInfo, err := GetUserInfo(s.oauth.Client(ctx, token), googleUserInfoURL)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, userInfo.Email)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	return s.accounts.Open(ctx, userInfo.Email, userInfo.Name, referrerID)
}

func GetUserInfo(client *http.Client, userInfoURL string) (*transfer.GoogleUserInfo, error) {
	response, err := client.Get(userInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}
	if userInfo.Email == "" {
		return nil, errors.New("google account has no email")
	}
	return &userInfo, nil
}
