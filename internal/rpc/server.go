// Package rpc exposes the risk assessment service over gRPC.
//
// Messages are google.protobuf.Struct values carrying the same camelCase
// fields as the JSON API, so no generated stubs are needed. The service
// descriptor below is what protoc-gen-go-grpc would emit for:
//
//	service RiskService {
//	  rpc AssessRisk(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
)

const (
	ServiceName      = "vitalwatch.v1.RiskService"
	AssessRiskMethod = "/" + ServiceName + "/AssessRisk"
)

// Assessor is the subset of *assessment.Service the gRPC layer needs.
type Assessor interface {
	Assess(ctx context.Context, req assessment.HealthProfileRequest) (assessment.Result, error)
}

// RiskServer is the server API for RiskService.
type RiskServer interface {
	AssessRisk(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var riskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AssessRisk",
			Handler:    assessRiskHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vitalwatch/v1/risk.proto",
}

func assessRiskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskServer).AssessRisk(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AssessRiskMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RiskServer).AssessRisk(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ─── SERVER ───────────────────────────────────────────────────────────────────

// Server implements RiskServer on top of an Assessor.
type Server struct {
	assessor Assessor
	logger   *slog.Logger
}

// NewServer builds a *grpc.Server with RiskService and the standard health
// service registered, and request logging installed.
func NewServer(assessor Assessor, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	s := &Server{assessor: assessor, logger: logger}

	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	gs := grpc.NewServer(opts...)
	gs.RegisterService(&riskServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return gs
}

// AssessRisk decodes the profile, runs one assessment, and encodes the result.
func (s *Server) AssessRisk(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req assessment.HealthProfileRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid health profile: %v", err)
	}

	res, err := s.assessor.Assess(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := toStruct(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// toStatus maps the assessment error taxonomy onto gRPC codes.
func toStatus(err error) error {
	switch assessment.Kind(err) {
	case "validation":
		var ve *assessment.ValidationError
		errors.As(err, &ve)
		st := status.New(codes.InvalidArgument, err.Error())
		br := &errdetails.BadRequest{}
		for _, p := range ve.Problems {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       p.Field,
				Description: p.Reason,
			})
		}
		if withDetails, derr := st.WithDetails(br); derr == nil {
			st = withDetails
		}
		return st.Err()

	case "transport":
		if errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, err.Error())
		}
		return status.Error(codes.Unavailable, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	level := slog.LevelInfo
	if code != codes.OK && code != codes.InvalidArgument {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "grpc",
		"method", info.FullMethod,
		"code", code.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, err
}

// ─── STRUCT CONVERSION ────────────────────────────────────────────────────────

// fromStruct decodes a Struct into dst with the JSON API's rules: camelCase
// keys, unknown keys rejected.
func fromStruct(in *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
