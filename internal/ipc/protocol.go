// Package ipc carries activation commands from a second launcher process to the
// running background instance: one JSON request line, one JSON response line.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownCommand is returned for a command name outside the protocol.
var ErrUnknownCommand = errors.New("unknown command")

// Command is an activation command.
type Command string

const (
	CommandShowPopup Command = "show-popup"
	CommandHidePopup Command = "hide-popup"
	CommandShowMain  Command = "show-main"
	CommandQuit      Command = "quit"
)

// EndpointEnv overrides the default endpoint. The value must still look like
// a quicklaunch endpoint.
const EndpointEnv = "QUICKLAUNCH_IPC_ENDPOINT"

const (
	endpointPrefix = "quicklaunch"
	maxFrameBytes  = 16 * 1024
)

// Commands lists every accepted command in protocol order.
func Commands() []Command {
	return []Command{CommandShowPopup, CommandHidePopup, CommandShowMain, CommandQuit}
}

// ParseCommand accepts a command name, case-insensitively.
func ParseCommand(raw string) (Command, error) {
	name := Command(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Commands() {
		if name == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, raw)
}

// Request is one activation request.
type Request struct {
	Command Command `json:"command"`
}

// Response reports whether the request was applied.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler applies a validated request.
type Handler interface {
	Handle(req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request) Response

func (f HandlerFunc) Handle(req Request) Response { return f(req) }

// DefaultEndpoint returns the endpoint to use. A trusted EndpointEnv value
// wins; otherwise a per-user default is built.
func DefaultEndpoint() string {
	if v, ok := trustedEndpointFromEnv(); ok {
		return v
	}
	return defaultEndpoint()
}

func trustedEndpointFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(EndpointEnv))
	if value == "" {
		return "", false
	}
	if !validEndpoint(value) {
		slog.Warn("[DEBUG-IPC] endpoint override rejected: value does not match allowed pattern",
			"env", EndpointEnv, "value", value)
		return "", false
	}
	return value, true
}

func encodeFrame(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	cmd, err := ParseCommand(string(req.Command))
	if err != nil {
		return Request{}, err
	}
	req.Command = cmd
	return req, nil
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func readFrame(reader *bufio.Reader) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}
