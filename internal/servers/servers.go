// Package servers reads and refreshes the list of servers every command is
// sent to.
package servers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/core"
	"firestige.xyz/spamprint/internal/log"
)

// DefaultInformURL is where "discover" fetches the public server list.
const DefaultInformURL = "http://pyzor.sourceforge.net/cgi-bin/inform-servers-0-3-x"

// Read parses one "host:port" per line. Blank and '#' lines are ignored,
// unparseable lines are skipped with a warning.
func Read(r io.Reader, logger log.Logger) ([]account.Address, error) {
	if logger == nil {
		logger = log.GetLogger()
	}
	var list []account.Address
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := account.ParseAddress(line)
		if err != nil {
			logger.Warnf("servers file: invalid line %d: %v", lineno, err)
			continue
		}
		list = append(list, addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read servers: %w", err)
	}
	return list, nil
}

// Load reads the servers file at path and fails with core.ErrNoServers when
// it lists nothing usable.
func Load(path string, logger log.Logger) ([]account.Address, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open servers file: %w", err)
	}
	defer f.Close()

	list, err := Read(f, logger)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, core.ErrNoServers
	}
	return list, nil
}

// Exists reports whether the servers file is present.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// Downloader fetches the server list over HTTP.
type Downloader struct {
	client *http.Client
}

// NewDownloader returns a Downloader with the given request timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Downloader{client: &http.Client{Timeout: timeout}}
}

// Download stores the body of url at path. The file is replaced only after
// the whole body has been received.
func (d *Downloader) Download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download servers from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download servers from %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".servers-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write servers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write servers: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install servers file: %w", err)
	}
	return nil
}
