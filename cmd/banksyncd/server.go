package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-banksync/core"
	"github.com/goliatone/go-banksync/inbound"
)

const monzoAuthURL = "https://auth.monzo.com/"

func newRouter(svc *core.Service, dispatcher *inbound.Dispatcher, cfg appConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Sync.ServiceName,
		DisableStartupMessage: true,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/oauth/authorise", func(c *fiber.Ctx) error {
		query := url.Values{}
		query.Set("client_id", cfg.Sync.Provider.ClientID)
		query.Set("redirect_uri", cfg.Sync.RedirectURI())
		query.Set("response_type", "code")
		query.Set("state", "state")
		return c.Redirect(monzoAuthURL+"?"+query.Encode(), fiber.StatusFound)
	})

	app.Get("/oauth/callback", func(c *fiber.Ctx) error {
		code := strings.TrimSpace(c.Query("code"))
		if code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "authorization code is required",
			})
		}
		if _, err := svc.ExchangeCode(c.UserContext(), code); err != nil {
			return respondError(c, err)
		}
		home := strings.TrimRight(cfg.Sync.BaseURL, "/") + "/"
		return c.Redirect(home, fiber.StatusFound)
	})

	app.Post("/webhooks/monzo", func(c *fiber.Ctx) error {
		transaction, err := dispatcher.Dispatch(c.UserContext(), c.Body())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": transaction})
	})

	app.Get("/transactions/:user_id", func(c *fiber.Ctx) error {
		transactions, err := svc.TransactionsForUser(c.UserContext(), c.Params("user_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": transactions})
	})

	return app
}

func respondError(c *fiber.Ctx, err error) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code > 0 {
		return c.Status(rich.Code).JSON(fiber.Map{
			"error": rich.Message,
			"code":  rich.TextCode,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fmt.Sprintf("internal error: %v", err),
	})
}
