package driver

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"

	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/logger"
)

// isRemote reports whether the argument names a URL to fetch rather than
// a local file.
func isRemote(name string) bool {
	lower := strings.ToLower(name)
	for _, scheme := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// download fetches a remote archive into dir and returns the local
// filename, relative to dir. Local names pass through untouched.
func (a *App) download(ctx context.Context, dir, name string) (string, error) {
	if !isRemote(name) {
		return name, nil
	}

	parsed, err := url.Parse(name)
	if err != nil {
		return "", errors.Wrapf(err, "could not parse %s", name)
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return "", errors.Newf("cannot derive a filename from %s", name)
	}

	timeout := time.Duration(a.cfg.Download.TimeoutSeconds) * time.Second
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Infow("downloading archive", "url", name, "destination", base)
	client := &getter.Client{
		Ctx:     fetchCtx,
		Src:     name,
		Dst:     filepath.Join(dir, base),
		Mode:    getter.ClientModeFile,
		Getters: getter.Getters,
	}
	if err := client.Get(); err != nil {
		return "", errors.Wrapf(err, "could not download %s", name)
	}
	return base, nil
}
