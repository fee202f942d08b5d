package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"TgDrive/internal/cli/api"
	"TgDrive/internal/config"
)

type mvCmd struct{}

func (mvCmd) Name() string { return "mv" }
func (mvCmd) Description() string {
	return "Переименовать и/или перенести узел (-n имя, -d каталог)"
}
func (mvCmd) Usage() string { return "mv <id> [-n new-name] [-d new-dir]" }

func (mvCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return ErrUsage
	}
	id := args[0]

	payload := map[string]string{}
	for i := 1; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return ErrUsage
		}
		switch args[i] {
		case "-n":
			payload["new_name"] = args[i+1]
		case "-d":
			payload["new_dir"] = args[i+1]
		default:
			return ErrUsage
		}
	}

	endpoint := strings.TrimRight(cfg.ServerURL, "/") + "/api/files/" + id + "/move"
	resp, body, err := api.PostJSON(endpoint, payload, api.LoadToken())
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
	fmt.Fprintln(Out, "Moved")
	return nil
}

func init() { RegisterCmd(mvCmd{}) }
