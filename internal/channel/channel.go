// Package channel implements a named method channel: a call name plus an
// argument bundle in, exactly one of success, error or not-implemented out.
package channel

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"download-sink/internal/metrics"
)

var logger = loggo.GetLogger("sink.channel")

// Error codes carried by error results
const (
	CodeSaveFailed      = "SAVE_FAILED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
)

// Kind discriminates a Result
type Kind int

const (
	KindSuccess Kind = iota
	KindError
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindNotImplemented:
		return "not_implemented"
	}
	return "unknown"
}

// Result is the outcome of one invocation
type Result struct {
	Kind    Kind
	Value   string
	Code    string
	Message string
}

// Success builds a success result
func Success(value string) Result {
	return Result{Kind: KindSuccess, Value: value}
}

// Failure builds an error result
func Failure(code, message string) Result {
	return Result{Kind: KindError, Code: code, Message: message}
}

// NotImplemented is the result for method names with no handler
func NotImplemented() Result {
	return Result{Kind: KindNotImplemented}
}

// Arguments binds the transport-specific argument bundle into a typed value
type Arguments interface {
	Bind(v any) error
}

// JSONArguments is an argument bundle encoded as a JSON object
type JSONArguments []byte

// Bind implements Arguments
func (a JSONArguments) Bind(v any) error {
	if len(a) == 0 {
		return errors.NotValidf("empty arguments")
	}
	if err := json.Unmarshal(a, v); err != nil {
		return errors.NewNotValid(err, "malformed arguments")
	}
	return nil
}

// Call is one invocation
type Call struct {
	Method    string
	Arguments Arguments
}

// Handler serves one method
type Handler func(ctx context.Context, call Call) Result

// Channel dispatches calls by method name
type Channel struct {
	name     string
	handlers map[string]Handler
	metrics  *metrics.Metrics
}

// New creates an empty channel. m may be nil.
func New(name string, m *metrics.Metrics) *Channel {
	return &Channel{
		name:     name,
		handlers: make(map[string]Handler),
		metrics:  m,
	}
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Handle registers the handler for method, replacing any previous one
func (c *Channel) Handle(method string, h Handler) {
	c.handlers[method] = h
}

// Invoke dispatches call. Unknown methods yield NotImplemented.
func (c *Channel) Invoke(ctx context.Context, call Call) Result {
	id := uuid.NewString()

	h, ok := c.handlers[call.Method]
	if !ok {
		logger.Debugf("[%s] %s: no handler for %q", id, c.name, call.Method)
		c.metrics.ObserveCall(call.Method, KindNotImplemented.String())
		return NotImplemented()
	}

	logger.Debugf("[%s] %s: invoking %s", id, c.name, call.Method)
	res := h(ctx, call)

	switch res.Kind {
	case KindSuccess:
		logger.Infof("[%s] %s succeeded: %s", id, call.Method, res.Value)
	case KindError:
		logger.Errorf("[%s] %s failed (%s): %s", id, call.Method, res.Code, res.Message)
	}
	c.metrics.ObserveCall(call.Method, res.Kind.String())
	return res
}
