package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"TgDrive/internal/cli/api"
	"TgDrive/internal/config"
)

type lsCmd struct{}

func (lsCmd) Name() string        { return "ls" }
func (lsCmd) Description() string { return "Показать содержимое каталога" }
func (lsCmd) Usage() string       { return "ls [path]" }

type listingDTO struct {
	Directories []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"directories"`
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"files"`
}

func (lsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	path := "/"
	if len(args) == 1 {
		path = args[0]
	}

	endpoint := strings.TrimRight(cfg.ServerURL, "/") + "/api/files?path=" + url.QueryEscape(path)
	resp, body, err := api.GetJSON(endpoint, api.LoadToken())
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

	var listing listingDTO
	if err := json.Unmarshal(body, &listing); err != nil {
		return fmt.Errorf("invalid server response: %w", err)
	}
	for _, d := range listing.Directories {
		fmt.Fprintf(Out, "d %-36s %s/\n", d.ID, d.Name)
	}
	for _, f := range listing.Files {
		fmt.Fprintf(Out, "f %-36s %s (%d bytes)\n", f.ID, f.Name, f.Size)
	}
	if len(listing.Directories)+len(listing.Files) == 0 {
		fmt.Fprintln(Out, "(empty)")
	}
	return nil
}

func init() { RegisterCmd(lsCmd{}) }
