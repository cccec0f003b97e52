package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/git-iris/gitiris/internal/grpcapi"
	"github.com/git-iris/gitiris/internal/mcpserver"
)

var grpcAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run Git-Iris as a long-lived service over gRPC or MCP",
}

var serveGRPCCmd = &cobra.Command{
	Use:   "grpc",
	Short: "Serve ExecuteTask over gRPC",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Performance.VerboseLogging)

		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return err
		}
		srv := grpcapi.NewServer(cfg, grpcapi.WithLogger(logger))
		s := grpc.NewServer()
		grpcapi.RegisterExecuteTaskServer(s, srv)
		fmt.Fprintf(os.Stderr, "git-iris gRPC service listening on %s\n", grpcAddr)
		return s.Serve(lis)
	},
}

var serveMCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve one MCP tool per capability over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Performance.VerboseLogging)

		srv := mcpserver.NewServer(cfg, mcpserver.WithLogger(logger))
		return srv.Serve(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func init() {
	serveGRPCCmd.Flags().StringVar(&grpcAddr, "addr", ":8643", "address to listen on")
	serveCmd.AddCommand(serveGRPCCmd, serveMCPCmd)
	rootCmd.AddCommand(serveCmd)
}
