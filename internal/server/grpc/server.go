// Package grpc serves the finsync import service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/syncrpc"
	"google.golang.org/grpc"
)

// Importer reconciles a batch of client records for a user.
type Importer interface {
	UpsertBatch(ctx context.Context, userID string, inputs []syncrpc.TransactionInput) *syncrpc.ImportResult
}

type GRPCServer struct {
	address   string
	importer  Importer
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, im Importer, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		importer:  im,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	syncrpc.RegisterImportServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
