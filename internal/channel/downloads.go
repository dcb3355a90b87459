package channel

import (
	"context"

	"github.com/juju/errors"

	"download-sink/internal/metrics"
	"download-sink/internal/models"
	"download-sink/internal/sink"
)

const (
	// DownloadsChannel is the channel saveToDownloads is served on
	DownloadsChannel = "com.aryan.payhive/saveToDownloads"
	// MethodSaveToDownloads persists a buffer to the public Downloads area
	MethodSaveToDownloads = "saveToDownloads"

	// MaxArgumentsSize bounds an encoded argument bundle on every transport.
	// Content travels base64 encoded, so about 48 MiB of raw bytes fit.
	MaxArgumentsSize = 64 << 20
)

// NewDownloads creates the downloads channel backed by s
func NewDownloads(s sink.DownloadSink, m *metrics.Metrics) *Channel {
	c := New(DownloadsChannel, m)
	c.Handle(MethodSaveToDownloads, saveToDownloads(s, m))
	return c
}

// DecodeSaveRequest validates a saveToDownloads argument bundle
func DecodeSaveRequest(args Arguments) (sink.SaveRequest, error) {
	if args == nil {
		return sink.SaveRequest{}, errors.WithType(errors.NotValidf("missing arguments"), sink.InvalidArgument)
	}

	var raw models.SaveArguments
	if err := args.Bind(&raw); err != nil {
		return sink.SaveRequest{}, errors.WithType(err, sink.InvalidArgument)
	}
	// A missing or null field decodes to nil; an empty payload does not.
	if raw.Bytes == nil {
		return sink.SaveRequest{}, errors.WithType(errors.New("bytes is required"), sink.InvalidArgument)
	}

	req := sink.SaveRequest{Filename: raw.Filename, Content: raw.Bytes}
	if err := req.Validate(); err != nil {
		return sink.SaveRequest{}, err
	}
	return req, nil
}

func saveToDownloads(s sink.DownloadSink, m *metrics.Metrics) Handler {
	strategy := string(s.Strategy())

	return func(ctx context.Context, call Call) Result {
		req, err := DecodeSaveRequest(call.Arguments)
		if err != nil {
			m.ObserveSave(strategy, "invalid", 0)
			return Failure(CodeInvalidArgument, err.Error())
		}

		location, err := s.Save(ctx, req)
		if errors.Is(err, sink.InvalidArgument) {
			m.ObserveSave(strategy, "invalid", 0)
			return Failure(CodeInvalidArgument, err.Error())
		}
		if err != nil {
			m.ObserveSave(strategy, "error", 0)
			return Failure(CodeSaveFailed, err.Error())
		}

		m.ObserveSave(strategy, "ok", len(req.Content))
		return Success(location.String())
	}
}
