package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
)

// Client calls RiskService on a remote server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target (host:port) without TLS. Close the returned
// Client when done.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection. The caller keeps ownership of conn.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// AssessRisk sends req and decodes the result. Server errors are returned as
// gRPC status errors; use status.Code to inspect them.
func (c *Client) AssessRisk(ctx context.Context, req assessment.HealthProfileRequest) (assessment.Result, error) {
	in, err := toStruct(req)
	if err != nil {
		return assessment.Result{}, fmt.Errorf("rpc: encode request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, AssessRiskMethod, in, out); err != nil {
		return assessment.Result{}, err
	}

	var res assessment.Result
	if err := fromStruct(out, &res); err != nil {
		return assessment.Result{}, fmt.Errorf("rpc: decode result: %w", err)
	}
	return res, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
