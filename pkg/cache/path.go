package cache

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/scala-steward/coursier/pkg/errors"
)

// Sidecar suffixes next to every cached file.
const (
	suffixChecksum  = ".sha1"
	suffixLastCheck = ".lastCheck"
	suffixLock      = ".lock"
	suffixPart      = ".part"
)

// localPath maps a remote URL into the cache tree:
// root/<scheme>/<host>/<path>, with the path segments kept verbatim (no
// percent-decoding) and any query string encoded deterministically as a
// "?q=<urlencoded>" suffix.
func localPath(root, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "URL %q has no scheme or host", rawURL)
	}

	p := strings.TrimPrefix(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		p += "?q=" + url.QueryEscape(u.RawQuery)
	}
	return filepath.Join(root, u.Scheme, u.Host, filepath.FromSlash(p)), nil
}
