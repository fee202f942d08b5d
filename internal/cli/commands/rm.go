package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"TgDrive/internal/cli/api"
	"TgDrive/internal/config"
)

type rmCmd struct{}

func (rmCmd) Name() string        { return "rm" }
func (rmCmd) Description() string { return "Удалить узел (мягко; --hard — физически)" }
func (rmCmd) Usage() string       { return "rm <id> [--hard]" }

func (rmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	id := args[0]
	hard := len(args) == 2
	if hard && args[1] != "--hard" {
		return ErrUsage
	}

	endpoint := strings.TrimRight(cfg.ServerURL, "/") + "/api/files/" + id
	if hard {
		endpoint += "?hard=true"
	}
	resp, body, err := api.Delete(endpoint, api.LoadToken())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("not logged in; run: login <phone>")
	}
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("server error: %s", strings.TrimSpace(string(body)))
	}
	fmt.Fprintln(Out, "Removed")
	return nil
}

func init() { RegisterCmd(rmCmd{}) }

type restoreCmd struct{}

func (restoreCmd) Name() string        { return "restore" }
func (restoreCmd) Description() string { return "Восстановить мягко удалённый узел" }
func (restoreCmd) Usage() string       { return "restore <id>" }

func (restoreCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	endpoint := strings.TrimRight(cfg.ServerURL, "/") + "/api/files/" + args[0] + "/restore"
	resp, body, err := api.PostJSON(endpoint, struct{}{}, api.LoadToken())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("not logged in; run: login <phone>")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server error: %s", strings.TrimSpace(string(body)))
	}
	fmt.Fprintln(Out, "Restored")
	return nil
}

func init() { RegisterCmd(restoreCmd{}) }
