package grpc

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"download-sink/internal/channel"
)

// ChannelClient invokes channel methods on a remote sink server
type ChannelClient struct {
	conn grpc.ClientConnInterface
}

// NewChannelClient creates a new channel client
func NewChannelClient(conn grpc.ClientConnInterface) *ChannelClient {
	return &ChannelClient{conn: conn}
}

// Invoke calls method with a raw argument bundle
func (c *ChannelClient) Invoke(ctx context.Context, method string, args map[string]any) (string, error) {
	req, err := structpb.NewStruct(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments: %w", err)
	}

	resp := &wrapperspb.StringValue{}
	err = c.conn.Invoke(ctx, fmt.Sprintf("/%s/%s", ServiceName, method), req, resp,
		grpc.MaxCallSendMsgSize(channel.MaxArgumentsSize))
	if err != nil {
		return "", err
	}
	return resp.GetValue(), nil
}

// SaveToDownloads saves content under filename and returns its location
func (c *ChannelClient) SaveToDownloads(ctx context.Context, filename string, content []byte) (string, error) {
	return c.Invoke(ctx, channel.MethodSaveToDownloads, SaveArguments(filename, content))
}

// SaveArguments builds the saveToDownloads argument bundle
func SaveArguments(filename string, content []byte) map[string]any {
	return map[string]any{
		"filename": filename,
		"bytes":    base64.StdEncoding.EncodeToString(content),
	}
}

// ErrorCode returns the channel error code carried by err, if any
func ErrorCode(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
