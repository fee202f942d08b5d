package commands

import (
	"context"
	"fmt"
	"strings"

	"TgDrive/internal/cli/api"
	"TgDrive/internal/config"
)

type downloadCmd struct{}

func (downloadCmd) Name() string        { return "download" }
func (downloadCmd) Description() string { return "Скачать файл по id в локальный файл" }
func (downloadCmd) Usage() string       { return "download <id> <local-file>" }

func (downloadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	endpoint := strings.TrimRight(cfg.ServerURL, "/") + "/api/files/" + args[0] + "/download"
	if _, err := api.DownloadToFile(endpoint, args[1], api.LoadToken()); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Saved to %s\n", args[1])
	return nil
}

func init() { RegisterCmd(downloadCmd{}) }
