package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"TgDrive/internal/cli/api"
	"TgDrive/internal/config"
)

type SendCodeRequest struct {
	Phone string `json:"phone"`
}

type VerifyRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Password string `json:"password,omitempty"`
}

type loginCmd struct{}

func (loginCmd) Name() string { return "login" }
func (loginCmd) Description() string {
	return "Запросить код подтверждения и войти в Telegram-аккаунт"
}
func (loginCmd) Usage() string { return "login <phone> [<code> [password]]" }

// Run в одно-аргументной форме запрашивает код на телефон; с кодом (и
// опциональным паролем двухэтапной проверки) завершает логин и сохраняет
// auth cookie.
func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return ErrUsage
	}
	base := strings.TrimRight(cfg.ServerURL, "/")

	if len(args) == 1 {
		resp, body, err := api.PostJSON(base+"/api/auth/telegram/send_code", SendCodeRequest{Phone: args[0]}, "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server error: %s", strings.TrimSpace(string(body)))
		}
		fmt.Fprintln(Out, "Code sent. Complete with: login", args[0], "<code>")
		return nil
	}

	req := VerifyRequest{Phone: args[0], Code: args[1]}
	if len(args) == 3 {
		req.Password = args[2]
	}
	resp, body, err := api.PostJSON(base+"/api/auth/telegram/verify", req, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", strings.TrimSpace(string(body)))
	}
	if err := api.PersistAuthFromResponse(resp); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	fmt.Fprintln(Out, "Logged in successfully")
	return nil
}

func init() { RegisterCmd(loginCmd{}) }
