package main

import (
	"fmt"
	"time"

	"github.com/andresuchdata/stockcount/internal/app"
	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/pkg/auth"
	"github.com/urfave/cli/v2"
)

func runToken(c *cli.Context) error {
	role, ok := domain.ParseRole(c.String("role"))
	if !ok {
		return fmt.Errorf("unknown role %q", c.String("role"))
	}
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	token, err := auth.MintAccessToken(app.AuthConfig(cfg.Auth), time.Now(), c.String("staff-id"), role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
