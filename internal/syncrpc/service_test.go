package syncrpc

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type echoServer struct {
	got *ImportRequest
}

func (s *echoServer) Import(_ context.Context, in *ImportRequest) (*ImportResult, error) {
	s.got = in
	res := &ImportResult{}
	for _, tx := range in.Transactions {
		res.Inserted++
		res.Accepted = append(res.Accepted, tx.ClientID)
	}
	return res, nil
}

func (s *echoServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func dialBufconn(t *testing.T, srv ImportServiceServer, opts ...grpc.ServerOption) ImportServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterImportServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewImportServiceClient(conn)
}

func TestImport_RoundTripsOverJSONCodec(t *testing.T) {
	srv := &echoServer{}
	c := dialBufconn(t, srv)

	created := time.Date(2024, 11, 2, 10, 0, 0, 0, time.UTC)
	req := &ImportRequest{Transactions: []TransactionInput{
		{ClientID: "c1", AccountID: "a", AmountMinor: -123456, Currency: "INR", Category: "Expense",
			Merchant: "Amazon", Metadata: json.RawMessage(`{"k":1}`), CreatedAt: created},
		{ClientID: "c2", AccountID: "a", AmountMinor: 500, Currency: "USD", Category: "Income", CreatedAt: created},
	}}

	res, err := c.Import(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
	require.Equal(t, []string{"c1", "c2"}, res.Accepted)

	require.NotNil(t, srv.got)
	require.Len(t, srv.got.Transactions, 2)
	require.Equal(t, int64(-123456), srv.got.Transactions[0].AmountMinor)
	require.JSONEq(t, `{"k":1}`, string(srv.got.Transactions[0].Metadata))
	require.True(t, created.Equal(srv.got.Transactions[1].CreatedAt))
}

func TestPing(t *testing.T) {
	c := dialBufconn(t, &echoServer{})

	res, err := c.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	require.Equal(t, "OK", res.Status)
}

func TestInterceptorSeesFullMethod(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	icpt := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		mu.Lock()
		seen = append(seen, info.FullMethod)
		mu.Unlock()
		return h(ctx, req)
	}
	c := dialBufconn(t, &echoServer{}, grpc.UnaryInterceptor(icpt))

	_, err := c.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	_, err = c.Import(context.Background(), &ImportRequest{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{PingMethod, ImportMethod}, seen)
}

func TestImportResultWireNames(t *testing.T) {
	b, err := jsonCodec{}.Marshal(&ImportResult{
		Inserted: 2, Skipped: 1,
		Errors:   []RecordError{{ClientID: "c2", Error: "invalid accountId"}},
		Accepted: []string{"c1", "c3"},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"inserted":2,"updated":0,"skipped":1,
		"errors":[{"clientId":"c2","error":"invalid accountId"}],"accepted":["c1","c3"]}`, string(b))
}
