package grpc

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/syncrpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Import(ctx context.Context, req *syncrpc.ImportRequest) (*syncrpc.ImportResult, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	s.logger.Info(ctx, "Import request", "user_id", userID, "records", len(req.Transactions))

	res := s.importer.UpsertBatch(ctx, userID, req.Transactions)
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	return res, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *syncrpc.PingRequest) (*syncrpc.PingResponse, error) {
	return &syncrpc.PingResponse{Status: "OK"}, nil
}
