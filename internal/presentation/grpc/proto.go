package grpc

// proto.go hand-writes the service descriptor for dap.deposit.v1.DepositService.
// Messages are plain structs carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "dap.deposit.v1.DepositService"

// DepositServiceServer is the server API for DepositService.
type DepositServiceServer interface {
	Simulate(context.Context, *SimulateRequest) (*SimulateResponse, error)
	CreateDeposit(context.Context, *CreateDepositRequest) (*Deposit, error)
	GetDeposit(context.Context, *GetDepositRequest) (*Deposit, error)
	ListDeposits(context.Context, *ListDepositsRequest) (*ListDepositsResponse, error)
	RequestCollection(context.Context, *DepositActionRequest) (*Deposit, error)
	ConfirmPayment(context.Context, *DepositActionRequest) (*Deposit, error)
	OverrideStatus(context.Context, *OverrideStatusRequest) (*Deposit, error)
	RenewDeposit(context.Context, *DepositActionRequest) (*Deposit, error)
	ActivateDeposit(context.Context, *ActivateDepositRequest) (*ActivationResponse, error)
	UploadAttachment(context.Context, *UploadAttachmentRequest) (*Attachment, error)
	DeleteAttachment(context.Context, *DeleteAttachmentRequest) (*DeleteAttachmentResponse, error)
	GetAttachmentLocks(context.Context, *GetAttachmentLocksRequest) (*AttachmentLocksResponse, error)
	GetDocumentData(context.Context, *GetDocumentDataRequest) (*DocumentDataResponse, error)
	mustEmbedUnimplementedDepositServiceServer()
}

// UnimplementedDepositServiceServer provides forward-compatible default implementations.
type UnimplementedDepositServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedDepositServiceServer) Simulate(context.Context, *SimulateRequest) (*SimulateResponse, error) {
	return nil, unimplemented("Simulate")
}
func (UnimplementedDepositServiceServer) CreateDeposit(context.Context, *CreateDepositRequest) (*Deposit, error) {
	return nil, unimplemented("CreateDeposit")
}
func (UnimplementedDepositServiceServer) GetDeposit(context.Context, *GetDepositRequest) (*Deposit, error) {
	return nil, unimplemented("GetDeposit")
}
func (UnimplementedDepositServiceServer) ListDeposits(context.Context, *ListDepositsRequest) (*ListDepositsResponse, error) {
	return nil, unimplemented("ListDeposits")
}
func (UnimplementedDepositServiceServer) RequestCollection(context.Context, *DepositActionRequest) (*Deposit, error) {
	return nil, unimplemented("RequestCollection")
}
func (UnimplementedDepositServiceServer) ConfirmPayment(context.Context, *DepositActionRequest) (*Deposit, error) {
	return nil, unimplemented("ConfirmPayment")
}
func (UnimplementedDepositServiceServer) OverrideStatus(context.Context, *OverrideStatusRequest) (*Deposit, error) {
	return nil, unimplemented("OverrideStatus")
}
func (UnimplementedDepositServiceServer) RenewDeposit(context.Context, *DepositActionRequest) (*Deposit, error) {
	return nil, unimplemented("RenewDeposit")
}
func (UnimplementedDepositServiceServer) ActivateDeposit(context.Context, *ActivateDepositRequest) (*ActivationResponse, error) {
	return nil, unimplemented("ActivateDeposit")
}
func (UnimplementedDepositServiceServer) UploadAttachment(context.Context, *UploadAttachmentRequest) (*Attachment, error) {
	return nil, unimplemented("UploadAttachment")
}
func (UnimplementedDepositServiceServer) DeleteAttachment(context.Context, *DeleteAttachmentRequest) (*DeleteAttachmentResponse, error) {
	return nil, unimplemented("DeleteAttachment")
}
func (UnimplementedDepositServiceServer) GetAttachmentLocks(context.Context, *GetAttachmentLocksRequest) (*AttachmentLocksResponse, error) {
	return nil, unimplemented("GetAttachmentLocks")
}
func (UnimplementedDepositServiceServer) GetDocumentData(context.Context, *GetDocumentDataRequest) (*DocumentDataResponse, error) {
	return nil, unimplemented("GetDocumentData")
}
func (UnimplementedDepositServiceServer) mustEmbedUnimplementedDepositServiceServer() {}

// RegisterDepositServiceServer registers srv with the gRPC server.
func RegisterDepositServiceServer(s grpclib.ServiceRegistrar, srv DepositServiceServer) {
	s.RegisterService(&depositServiceDesc, srv)
}

var depositServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DepositServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Simulate", Handler: unaryHandler("Simulate", DepositServiceServer.Simulate)},
		{MethodName: "CreateDeposit", Handler: unaryHandler("CreateDeposit", DepositServiceServer.CreateDeposit)},
		{MethodName: "GetDeposit", Handler: unaryHandler("GetDeposit", DepositServiceServer.GetDeposit)},
		{MethodName: "ListDeposits", Handler: unaryHandler("ListDeposits", DepositServiceServer.ListDeposits)},
		{MethodName: "RequestCollection", Handler: unaryHandler("RequestCollection", DepositServiceServer.RequestCollection)},
		{MethodName: "ConfirmPayment", Handler: unaryHandler("ConfirmPayment", DepositServiceServer.ConfirmPayment)},
		{MethodName: "OverrideStatus", Handler: unaryHandler("OverrideStatus", DepositServiceServer.OverrideStatus)},
		{MethodName: "RenewDeposit", Handler: unaryHandler("RenewDeposit", DepositServiceServer.RenewDeposit)},
		{MethodName: "ActivateDeposit", Handler: unaryHandler("ActivateDeposit", DepositServiceServer.ActivateDeposit)},
		{MethodName: "UploadAttachment", Handler: unaryHandler("UploadAttachment", DepositServiceServer.UploadAttachment)},
		{MethodName: "DeleteAttachment", Handler: unaryHandler("DeleteAttachment", DepositServiceServer.DeleteAttachment)},
		{MethodName: "GetAttachmentLocks", Handler: unaryHandler("GetAttachmentLocks", DepositServiceServer.GetAttachmentLocks)},
		{MethodName: "GetDocumentData", Handler: unaryHandler("GetDocumentData", DepositServiceServer.GetDocumentData)},
	},
	Streams: []grpclib.StreamDesc{},
}

// FullMethod returns the gRPC method path for method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](
	method string,
	call func(DepositServiceServer, context.Context, *Req) (*Resp, error),
) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := FullMethod(method)
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DepositServiceServer), ctx, in)
		}
		info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(DepositServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
