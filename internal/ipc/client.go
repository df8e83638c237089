package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
	"time"
)

// ErrRejected wraps the error text of a response with OK unset.
var ErrRejected = errors.New("request rejected")

const (
	defaultDialTimeout = 2 * time.Second
	defaultRWTimeout   = 5 * time.Second
)

// Send delivers one command and waits for the response. An empty endpoint
// selects DefaultEndpoint.
func Send(endpoint string, cmd Command) (Response, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint()
	}
	if _, err := ParseCommand(string(cmd)); err != nil {
		return Response{}, err
	}

	conn, err := dialEndpoint(endpoint, defaultDialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(defaultRWTimeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	raw, err := encodeFrame(Request{Command: cmd})
	if err != nil {
		return Response{}, err
	}
	if _, err := conn.Write(raw); err != nil {
		return Response{}, err
	}

	respRaw, err := readFrame(bufio.NewReaderSize(conn, maxFrameBytes+1))
	if err != nil {
		return Response{}, err
	}
	resp, err := decodeResponse(respRaw)
	if err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	return resp, nil
}

// IsConnectionError reports whether err means no instance is listening.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}
