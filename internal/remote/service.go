// Package remote exposes a Sampler to remote operators over gRPC. Messages
// are well-known protobuf types so no generated code is needed.
package remote

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/surface-sampler/internal/instrument"
	"github.com/signalsfoundry/surface-sampler/internal/logging"
	"github.com/signalsfoundry/surface-sampler/internal/observability"
	"github.com/signalsfoundry/surface-sampler/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "sampler.v1.InstrumentService"

// recordIDField carries the record id in record-scoped requests.
const recordIDField = "record_id"

// Instrument is the operation set reachable remotely. *instrument.Sampler
// implements it.
type Instrument interface {
	Deploy(ctx context.Context) error
	Reset(ctx context.Context) error
	Inspect(ctx context.Context) error
	Status() instrument.Status
	GetRecords() []model.SampleRecord
	Discard(ctx context.Context, rec model.SampleRecord) error
	Transmit(ctx context.Context, rec model.SampleRecord) error
	Analyze(ctx context.Context, rec model.SampleRecord) error
	Dump(rec model.SampleRecord) error
}

// InstrumentServiceServer is the server side of the operator service.
type InstrumentServiceServer interface {
	Deploy(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Records(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Inspect(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Discard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transmit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dump(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server adapts an Instrument to InstrumentServiceServer. It owns no
// business logic.
type Server struct {
	inst Instrument
	log  logging.Logger
}

var _ InstrumentServiceServer = (*Server)(nil)

// NewServer wraps inst.
func NewServer(inst Instrument, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{inst: inst, log: log}
}

// Register attaches the service to gs.
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	gs.RegisterService(&serviceDesc, s)
}

// NewGRPCServer builds a gRPC server carrying the operator service with
// op_id, tracing and metrics interceptors. collector may be nil.
func NewGRPCServer(inst Instrument, log logging.Logger, collector *observability.SamplerCollector, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		OperationIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if collector != nil {
		interceptors = append(interceptors, collector.UnaryServerInterceptor())
	}
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}, opts...)

	gs := grpc.NewServer(opts...)
	NewServer(inst, log).Register(gs)
	return gs
}

func (s *Server) Deploy(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.inst.Deploy(ctx); err != nil {
		return nil, s.fail(ctx, "deploy", err)
	}
	return statusStruct(s.inst.Status())
}

func (s *Server) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.inst.Reset(ctx); err != nil {
		return nil, s.fail(ctx, "reset", err)
	}
	return statusStruct(s.inst.Status())
}

func (s *Server) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return statusStruct(s.inst.Status())
}

func (s *Server) Records(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	records := s.inst.GetRecords()
	list := make([]interface{}, 0, len(records))
	for _, rec := range records {
		list = append(list, recordMap(rec))
	}
	out, err := structpb.NewStruct(map[string]interface{}{"records": list})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func (s *Server) Inspect(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.inst.Inspect(ctx); err != nil {
		return nil, s.fail(ctx, "inspect", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Discard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.withRecord(ctx, "discard", req, s.inst.Discard)
}

func (s *Server) Transmit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.withRecord(ctx, "transmit", req, s.inst.Transmit)
}

func (s *Server) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.withRecord(ctx, "analyze", req, s.inst.Analyze)
}

func (s *Server) Dump(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.withRecord(ctx, "dump", req, func(_ context.Context, rec model.SampleRecord) error {
		return s.inst.Dump(rec)
	})
}

func (s *Server) withRecord(ctx context.Context, op string, req *structpb.Struct, fn func(context.Context, model.SampleRecord) error) (*structpb.Struct, error) {
	id := req.GetFields()[recordIDField].GetStringValue()
	if id == "" {
		return nil, ToStatusError(fmt.Errorf("%w: %s is required", ErrInvalidRequest, recordIDField))
	}
	for _, rec := range s.inst.GetRecords() {
		if rec.ID != id {
			continue
		}
		if err := fn(ctx, rec); err != nil {
			return nil, s.fail(ctx, op, err)
		}
		return statusStruct(s.inst.Status())
	}
	return nil, s.fail(ctx, op, fmt.Errorf("%w: %s", instrument.ErrRecordNotHeld, id))
}

func (s *Server) fail(ctx context.Context, op string, err error) error {
	logging.FromContext(ctx, s.log).Debug(ctx, "operator call failed",
		logging.String("op", op),
		logging.Err(err),
	)
	return ToStatusError(err)
}

func statusStruct(st instrument.Status) (*structpb.Struct, error) {
	m := map[string]interface{}{
		"state":      st.State.String(),
		"records":    st.Records,
		"rerunnable": st.Rerunnable,
		"pending":    st.Pending != nil,
		"actions": map[string]interface{}{
			"deploy":  st.Actions.Deploy,
			"reset":   st.Actions.Reset,
			"review":  st.Actions.Review,
			"collect": st.Actions.Collect,
			"cleanup": st.Actions.Cleanup,
		},
	}
	if st.Pending != nil {
		m["pending_id"] = st.Pending.ID
		m["pending_deadline"] = st.Pending.Deadline().UTC().Format(time.RFC3339Nano)
		m["classification"] = st.Pending.Classification.String()
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func recordMap(rec model.SampleRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":             rec.ID,
		"subject_id":     rec.SubjectID,
		"title":          rec.Title,
		"data":           rec.DataAmount,
		"transmit_value": rec.TransmitValue,
		"lab_value":      rec.LabValue,
		"via_transfer":   rec.ViaTransfer,
		"instrument_id":  float64(rec.InstrumentID),
	}
}

type methodFunc[Req proto.Message] func(InstrumentServiceServer, context.Context, Req) (proto.Message, error)

// unary builds a grpc.MethodDesc handler for one method.
func unary[Req proto.Message](method string, newReq func() Req, call methodFunc[Req]) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InstrumentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(InstrumentServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty    { return &emptypb.Empty{} }
func newStruct() *structpb.Struct { return &structpb.Struct{} }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InstrumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Deploy", newEmpty, func(s InstrumentServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.Deploy(ctx, in)
		}),
		unary("Reset", newEmpty, func(s InstrumentServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.Reset(ctx, in)
		}),
		unary("Status", newEmpty, func(s InstrumentServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.Status(ctx, in)
		}),
		unary("Records", newEmpty, func(s InstrumentServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.Records(ctx, in)
		}),
		unary("Inspect", newEmpty, func(s InstrumentServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.Inspect(ctx, in)
		}),
		unary("Discard", newStruct, func(s InstrumentServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.Discard(ctx, in)
		}),
		unary("Transmit", newStruct, func(s InstrumentServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.Transmit(ctx, in)
		}),
		unary("Analyze", newStruct, func(s InstrumentServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.Analyze(ctx, in)
		}),
		unary("Dump", newStruct, func(s InstrumentServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.Dump(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sampler/v1/instrument.proto",
}
