package rpc_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/vitalwatch-backend/internal/ai"
	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/rpc"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) Generate(context.Context, ai.Prompt) (string, error) { return g.reply, g.err }
func (g stubGenerator) Name() string { return "stub" }

// startServer serves RiskService over an in-memory listener and returns a
// connection to it.
func startServer(t *testing.T, gen ai.Generator) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gs := rpc.NewServer(assessment.NewService(gen), logger)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func validRequest() assessment.HealthProfileRequest {
	return assessment.HealthProfileRequest{
		Age: 45, Gender: "Male", SugarLevel: 140, BPSystolic: 130, BPDiastolic: 85, BMI: 28.5, Condition: "diabetes",
	}
}

func TestAssessRisk_RoundTrip(t *testing.T) {
	conn := startServer(t, stubGenerator{
		reply: `{"riskScore": 62, "riskLevel": "Medium", "explanation": "Elevated sugar level and BMI contribute to moderate risk."}`,
	})

	res, err := rpc.NewClient(conn).AssessRisk(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	want := assessment.Result{
		RiskScore:   62,
		RiskLevel:   assessment.RiskMedium,
		Explanation: "Elevated sugar level and BMI contribute to moderate risk.",
	}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}
}

func TestAssessRisk_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		gen  stubGenerator
		req  func(*assessment.HealthProfileRequest)
		want codes.Code
	}{
		{
			name: "validation",
			gen:  stubGenerator{reply: "{}"},
			req:  func(r *assessment.HealthProfileRequest) { r.Age = 0 },
			want: codes.InvalidArgument,
		},
		{
			name: "transport",
			gen:  stubGenerator{err: &ai.StatusError{Provider: "stub", StatusCode: 503, Message: "overloaded"}},
			want: codes.Unavailable,
		},
		{
			name: "deadline",
			gen:  stubGenerator{err: fmt.Errorf("stub: %w", context.DeadlineExceeded)},
			want: codes.DeadlineExceeded,
		},
		{
			name: "schema",
			gen:  stubGenerator{reply: "```json\n{}\n```"},
			want: codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := startServer(t, tt.gen)
			req := validRequest()
			if tt.req != nil {
				tt.req(&req)
			}

			_, err := rpc.NewClient(conn).AssessRisk(context.Background(), req)
			if got := status.Code(err); got != tt.want {
				t.Fatalf("code: got %s, want %s (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestAssessRisk_ValidationCarriesFieldViolations(t *testing.T) {
	conn := startServer(t, stubGenerator{})
	req := validRequest()
	req.Gender = "unknown"
	req.BMI = 0

	_, err := rpc.NewClient(conn).AssessRisk(context.Background(), req)
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	fields := map[string]bool{}
	for _, d := range st.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields[v.GetField()] = true
			}
		}
	}
	if !fields["gender"] || !fields["bmi"] {
		t.Errorf("expected gender and bmi violations, got %v", fields)
	}
}

func TestAssessRisk_UnknownFieldIsInvalidArgument(t *testing.T) {
	conn := startServer(t, stubGenerator{})

	in, err := structpb.NewStruct(map[string]any{"age": 45, "weight": 80})
	if err != nil {
		t.Fatal(err)
	}
	err = conn.Invoke(context.Background(), rpc.AssessRiskMethod, in, new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	conn := startServer(t, stubGenerator{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{
		Service: rpc.ServiceName,
	})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status: got %s", resp.GetStatus())
	}
}
