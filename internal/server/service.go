package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/price-bulletin/internal/ingest"
	"github.com/joseph-ayodele/price-bulletin/internal/pipeline"
	"github.com/joseph-ayodele/price-bulletin/internal/repository"
)

const serviceName = "bulletin.v1.BulletinService"

// BulletinServer is the RPC surface of the daemon. Messages are
// google.protobuf.Struct so clients need no generated stubs.
type BulletinServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(BulletinServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call method) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BulletinServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BulletinServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var BulletinServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BulletinServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Parse", BulletinServer.Parse),
		unary("Stats", BulletinServer.Stats),
		unary("ListRuns", BulletinServer.ListRuns),
		unary("IngestFile", BulletinServer.IngestFile),
		unary("IngestDirectory", BulletinServer.IngestDirectory),
		unary("Export", BulletinServer.Export),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bulletin/v1/bulletin.proto",
}

func RegisterBulletinServer(s grpc.ServiceRegistrar, srv BulletinServer) {
	s.RegisterService(&BulletinServiceDesc, srv)
}

// BulletinClient calls a BulletinServer over a client connection.
type BulletinClient struct {
	cc grpc.ClientConnInterface
}

func NewBulletinClient(cc grpc.ClientConnInterface) *BulletinClient {
	return &BulletinClient{cc: cc}
}

// Call invokes method with the given request fields.
func (c *BulletinClient) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Publisher runs one document through the pipeline and its outputs.
type Publisher interface {
	Publish(ctx context.Context, req pipeline.Request) (uuid.UUID, pipeline.Outcome, error)
}

// XLSXExporter renders a stored bulletin.
type XLSXExporter interface {
	ExportXLSX(ctx context.Context, date string) ([]byte, error)
}

type BulletinService struct {
	publisher Publisher
	prices    repository.PriceRepository
	runs      repository.RunRepository
	ingestor  ingest.Ingestor
	exporter  XLSXExporter
	logger    *slog.Logger
}

func NewBulletinService(
	pub Publisher,
	prices repository.PriceRepository,
	runs repository.RunRepository,
	ing ingest.Ingestor,
	exp XLSXExporter,
	logger *slog.Logger,
) *BulletinService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulletinService{
		publisher: pub,
		prices:    prices,
		runs:      runs,
		ingestor:  ing,
		exporter:  exp,
		logger:    logger,
	}
}

func str(in *structpb.Struct, key string) string {
	if v, ok := in.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func boolean(in *structpb.Struct, key string, def bool) bool {
	if v, ok := in.GetFields()[key]; ok {
		if _, isBool := v.GetKind().(*structpb.Value_BoolValue); isBool {
			return v.GetBoolValue()
		}
	}
	return def
}

func number(in *structpb.Struct, key string, def int) int {
	if v, ok := in.GetFields()[key]; ok {
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
			return int(v.GetNumberValue())
		}
	}
	return def
}

// toStruct converts any JSON-serializable value into a Struct, using the
// value's JSON field names.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return structpb.NewStruct(m)
}
