//go:build windows

package ipc

import (
	"fmt"
	"net"
	"os/user"
	"regexp"
	"strings"
	"time"

	"quicklaunch/internal/userutil"

	"github.com/Microsoft/go-winio"
)

const pipeRoot = `\\.\pipe\`

var (
	pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\quicklaunch-[a-z0-9._-]{1,128}$`)
	sidPattern      = regexp.MustCompile(`^S-1(-\d+)+$`)
)

func defaultEndpoint() string {
	return pipeRoot + userutil.InstanceName(endpointPrefix)
}

func validEndpoint(value string) bool {
	return pipeNamePattern.MatchString(value)
}

// listenEndpoint opens a byte-mode pipe that only SYSTEM and the current
// user may connect to.
var listenEndpoint = func(endpoint string) (net.Listener, error) {
	sddl, err := ownerOnlySDDL()
	if err != nil {
		return nil, err
	}
	return winio.ListenPipe(endpoint, &winio.PipeConfig{
		SecurityDescriptor: sddl,
		InputBufferSize:    maxFrameBytes,
		OutputBufferSize:   maxFrameBytes,
	})
}

var dialEndpoint = func(endpoint string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(endpoint, &timeout)
}

func ownerOnlySDDL() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("look up current user: %w", err)
	}
	sid := strings.TrimSpace(u.Uid)
	if !sidPattern.MatchString(sid) {
		return "", fmt.Errorf("current user SID %q is not usable", sid)
	}
	return "D:P(A;;GA;;;SY)(A;;GA;;;" + sid + ")", nil
}
