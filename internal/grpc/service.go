package grpc

import (
	"encoding/json"
	"strings"

	"github.com/juju/errors"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"download-sink/internal/channel"
)

// ServiceName is the gRPC service every channel method is served under;
// the full method is /payhive.MethodChannel/<method>.
const ServiceName = "payhive.MethodChannel"

// ChannelService maps gRPC calls onto a method channel
type ChannelService struct {
	channel *channel.Channel
}

// NewChannelService creates a new channel service
func NewChannelService(ch *channel.Channel) *ChannelService {
	return &ChannelService{channel: ch}
}

// StructArguments is an argument bundle carried as a google.protobuf.Struct
type StructArguments struct {
	*structpb.Struct
}

// Bind implements channel.Arguments
func (a StructArguments) Bind(v any) error {
	if a.Struct == nil {
		return errors.NotValidf("empty arguments")
	}
	data, err := protojson.Marshal(a.Struct)
	if err != nil {
		return errors.NewNotValid(err, "malformed arguments")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewNotValid(err, "malformed arguments")
	}
	return nil
}

func (s *ChannelService) handleStream(srv any, stream grpc.ServerStream) error {
	fullMethod, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "no method in stream context")
	}

	service, method := splitMethod(fullMethod)
	if service != ServiceName {
		return status.Errorf(codes.Unimplemented, "unknown service %s", service)
	}

	args := &structpb.Struct{}
	if err := stream.RecvMsg(args); err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to read arguments: %v", err)
	}

	res := s.channel.Invoke(stream.Context(), channel.Call{
		Method:    method,
		Arguments: StructArguments{args},
	})

	switch res.Kind {
	case channel.KindSuccess:
		return stream.SendMsg(wrapperspb.String(res.Value))
	case channel.KindNotImplemented:
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	default:
		return errorStatus(s.channel.Name(), res).Err()
	}
}

func errorStatus(domain string, res channel.Result) *status.Status {
	code := codes.Internal
	if res.Code == channel.CodeInvalidArgument {
		code = codes.InvalidArgument
	}

	st := status.New(code, res.Message)
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason: res.Code,
		Domain: domain,
	})
	if err != nil {
		logger.Warningf("attaching error details: %v", err)
		return st
	}
	return detailed
}

// splitMethod splits "/service/method"
func splitMethod(fullMethod string) (string, string) {
	trimmed := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[:i], trimmed[i+1:]
	}
	return "", trimmed
}
