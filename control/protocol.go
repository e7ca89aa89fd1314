package control

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gogpu/liveview/gpucore"
)

// Command names.
const (
	CmdStartLiveView   = "start_live_view"
	CmdStopLiveView    = "stop_live_view"
	CmdSetMinThreshold = "set_min_threshold"
	CmdSetMaxThreshold = "set_max_threshold"
	CmdState           = "state"
	CmdGreet           = "greet"
)

// Request is one command sent by a client.
type Request struct {
	ID   string          `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// StateResult is the result of the state command.
type StateResult struct {
	Playing      bool   `json:"playing"`
	MinThreshold uint32 `json:"minThreshold"`
	MaxThreshold uint32 `json:"maxThreshold"`
}

type minThresholdArgs struct {
	NewMinThreshold *uint32 `json:"newMinThreshold"`
}

type maxThresholdArgs struct {
	NewMaxThreshold *uint32 `json:"newMaxThreshold"`
}

type greetArgs struct {
	Name string `json:"name"`
}

// Controller is the engine surface commands act on. *liveview.Engine
// implements it.
type Controller interface {
	StartLiveView() error
	StopLiveView() error
	SetMinThreshold(v uint32)
	SetMaxThreshold(v uint32)
	Thresholds() gpucore.Thresholds
	Playing() bool
}

// Greeting returns the greet command result for name.
func Greeting(name string) string {
	return fmt.Sprintf("Hello, %s! You've been greeted from Go!", name)
}

// Dispatch decodes the arguments of req, runs the command on c and
// returns the response. Dispatch never panics on client input.
func Dispatch(c Controller, req Request) Response {
	result, err := dispatch(c, req)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, OK: true, Result: result}
}

func dispatch(c Controller, req Request) (any, error) {
	switch req.Cmd {
	case CmdStartLiveView:
		return nil, c.StartLiveView()

	case CmdStopLiveView:
		return nil, c.StopLiveView()

	case CmdSetMinThreshold:
		var args minThresholdArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		if args.NewMinThreshold == nil {
			return nil, fmt.Errorf("%w: newMinThreshold is required", ErrBadArgs)
		}
		c.SetMinThreshold(*args.NewMinThreshold)
		return nil, nil

	case CmdSetMaxThreshold:
		var args maxThresholdArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		if args.NewMaxThreshold == nil {
			return nil, fmt.Errorf("%w: newMaxThreshold is required", ErrBadArgs)
		}
		c.SetMaxThreshold(*args.NewMaxThreshold)
		return nil, nil

	case CmdState:
		th := c.Thresholds()
		return StateResult{
			Playing:      c.Playing(),
			MinThreshold: th.Low,
			MaxThreshold: th.High,
		}, nil

	case CmdGreet:
		var args greetArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return Greeting(args.Name), nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, req.Cmd)
	}
}

// decodeArgs decodes raw into v, rejecting unknown fields. Missing args
// decode as an empty object.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadArgs, err)
	}
	return nil
}
