package main

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditware/fiscal-cli/internal/fetcher"
)

var (
	fetchOut     string
	fetchExtract bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Download a remote ledger file",
	Long:  "Downloads a ledger file over HTTP(S) or FTP, optionally extracting ZIP archives, so it can be parsed locally.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rawURL := cfg.Fetch.URL
		if len(args) == 1 {
			rawURL = args[0]
		} else if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		dir := fetchOut
		if dir == "" {
			dir = cfg.Fetch.DownloadDir
		}
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "fetch: create download dir")
		}

		name, err := remoteFileName(rawURL)
		if err != nil {
			return err
		}
		dest := filepath.Join(dir, name)

		f, err := fetcher.ForURL(rawURL, fetcher.Options{
			TimeoutSecs:   cfg.Fetch.TimeoutSecs,
			RatePerSecond: cfg.Fetch.RatePerSecond,
		})
		if err != nil {
			return err
		}

		n, err := f.DownloadToFile(ctx, rawURL, dest)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}
		zap.L().Info("download complete",
			zap.String("url", rawURL),
			zap.String("dest", dest),
			zap.Int64("bytes", n),
		)

		if fetchExtract && strings.EqualFold(filepath.Ext(dest), ".zip") {
			extracted, err := fetcher.ExtractZIP(dest, dir)
			if err != nil {
				return eris.Wrap(err, "fetch extract")
			}
			for _, p := range extracted {
				fmt.Println(p)
			}
			return nil
		}

		fmt.Println(dest)
		return nil
	},
}

// remoteFileName derives a local file name from the URL path.
func remoteFileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetch: parse url")
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", eris.Errorf("cannot derive a file name from %s", rawURL)
	}
	return name, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "download directory (default from config)")
	fetchCmd.Flags().BoolVar(&fetchExtract, "extract", false, "extract downloaded ZIP archives")
	rootCmd.AddCommand(fetchCmd)
}
