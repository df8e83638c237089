//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"quicklaunch/internal/userutil"
)

var endpointBasePattern = regexp.MustCompile(`^quicklaunch-[A-Za-z0-9._-]{1,128}\.sock$`)

// errEndpointInUse is returned when a live server already owns the socket.
var errEndpointInUse = errors.New("endpoint already in use")

func defaultEndpoint() string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, userutil.InstanceName(endpointPrefix)+".sock")
}

func validEndpoint(value string) bool {
	return filepath.IsAbs(value) && endpointBasePattern.MatchString(filepath.Base(value))
}

// listenEndpoint removes a stale socket left by a crashed instance before
// listening. The socket is only accessible to the current user.
var listenEndpoint = func(endpoint string) (net.Listener, error) {
	if _, err := os.Lstat(endpoint); err == nil {
		if conn, dialErr := net.DialTimeout("unix", endpoint, 200*time.Millisecond); dialErr == nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %s", errEndpointInUse, endpoint)
		}
		if err := os.Remove(endpoint); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(endpoint), 0o700); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	listener, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(endpoint, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return listener, nil
}

var dialEndpoint = func(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", endpoint, timeout)
}
