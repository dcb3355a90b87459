package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"download-sink/internal/channel"
	grpcClient "download-sink/internal/grpc"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		addr     string
		filename string
		method   string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:           "sink-client <file>",
		Short:         "Save a local file to the public Downloads area of a sink server",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if filename == "" {
				filename = filepath.Base(args[0])
			}

			// Connect to gRPC server
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("failed to connect to gRPC server: %w", err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := grpcClient.NewChannelClient(conn)
			location, err := client.Invoke(ctx, method, grpcClient.SaveArguments(filename, content))
			if err != nil {
				if code := grpcClient.ErrorCode(err); code != "" {
					return fmt.Errorf("%s: %s", code, status.Convert(err).Message())
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:50051", "gRPC server address")
	cmd.Flags().StringVar(&filename, "filename", "", "name to save under (default: base name of <file>)")
	cmd.Flags().StringVar(&method, "method", channel.MethodSaveToDownloads, "channel method to invoke")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "call timeout")
	return cmd
}
