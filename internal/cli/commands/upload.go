package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"TgDrive/internal/cli/api"
	"TgDrive/internal/config"
)

type uploadCmd struct{}

func (uploadCmd) Name() string        { return "upload" }
func (uploadCmd) Description() string { return "Загрузить локальный файл в каталог" }
func (uploadCmd) Usage() string       { return "upload <local-file> [remote-dir]" }

func (uploadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	local := args[0]
	remoteDir := "/"
	if len(args) == 2 {
		remoteDir = args[1]
	}

	endpoint := strings.TrimRight(cfg.ServerURL, "/") + "/api/files"
	resp, body, err := api.UploadFile(endpoint, local, remoteDir, api.LoadToken())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("not logged in; run: login <phone>")
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server error: %s", strings.TrimSpace(string(body)))
	}

	var res struct {
		Node struct {
			ID   string `json:"id"`
			Path string `json:"path"`
			Size int64  `json:"size"`
		} `json:"node"`
		Via string `json:"via"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("invalid server response: %w", err)
	}
	fmt.Fprintf(Out, "Uploaded %s (%d bytes, via %s)\n  id: %s\n", res.Node.Path, res.Node.Size, res.Via, res.Node.ID)
	return nil
}

func init() { RegisterCmd(uploadCmd{}) }
