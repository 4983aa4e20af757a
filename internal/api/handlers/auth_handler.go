package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/autopost/configs"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/maheshrc27/autopost/pkg/utils"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

// Login redirects to Google. A numeric ?ref= is carried through the OAuth
// state and credited as the referrer on first sign-in.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state := "login"
	if ref := c.QueryInt("ref", 0); ref > 0 {
		state = "ref:" + strconv.Itoa(ref)
	}
	return c.Redirect(h.s.AuthURL(state))
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	var referrerID *int64
	if state := c.Query("state"); len(state) > 4 && state[:4] == "ref:" {
		if id, err := strconv.ParseInt(state[4:], 10, 64); err == nil {
			referrerID = &id
		}
	}

	account, err := h.s.LoginCallback(c.Context(), c.Query("code"), referrerID)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "something went wrong")
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, account.ID, account.IsAdmin, tokenTTL)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "something went wrong")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(tokenTTL),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusOK)
}
