package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName — полное имя gRPC-сервиса (proto/stitchboard/v1/workshop.proto).
const ServiceName = "stitchboard.v1.Workshop"

// Имена методов Workshop.
const (
	MethodListCustomers      = "ListCustomers"
	MethodAddCustomer        = "AddCustomer"
	MethodDeleteCustomer     = "DeleteCustomer"
	MethodMoveCustomer       = "MoveCustomer"
	MethodListColors         = "ListColors"
	MethodAddColor           = "AddColor"
	MethodDeleteColor        = "DeleteColor"
	MethodMoveColor          = "MoveColor"
	MethodListCombinations   = "ListCombinations"
	MethodSaveCombination    = "SaveCombination"
	MethodDeleteCombination  = "DeleteCombination"
	MethodFindCombination    = "FindCombination"
	MethodGetMedia           = "GetMedia"
	MethodListOrders         = "ListOrders"
	MethodGetOrder           = "GetOrder"
	MethodCreateOrder        = "CreateOrder"
	MethodSetOrderStatus     = "SetOrderStatus"
	MethodDeleteOrder        = "DeleteOrder"
	MethodGetReport          = "GetReport"
	MethodListNotifications  = "ListNotifications"
	MethodListMutations      = "ListMutations"
	MethodRetryFailed        = "RetryFailed"
	MethodWatchNotifications = "WatchNotifications"
)

// WorkshopServer — серверная часть Workshop. Все запросы и ответы передаются как google.protobuf.Struct.
type WorkshopServer interface {
	ListCustomers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MoveCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListColors(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddColor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteColor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MoveColor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCombinations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveCombination(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteCombination(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindCombination(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMedia(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMutations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RetryFailed(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchNotifications(*structpb.Struct, grpc.ServerStream) error
}

type unaryCall func(WorkshopServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(WorkshopServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(WorkshopServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchNotificationsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(WorkshopServer).WatchNotifications(in, stream)
}

// WorkshopServiceDesc описывает сервис для grpc.Server.RegisterService.
var WorkshopServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorkshopServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodListCustomers, WorkshopServer.ListCustomers),
		unaryMethod(MethodAddCustomer, WorkshopServer.AddCustomer),
		unaryMethod(MethodDeleteCustomer, WorkshopServer.DeleteCustomer),
		unaryMethod(MethodMoveCustomer, WorkshopServer.MoveCustomer),
		unaryMethod(MethodListColors, WorkshopServer.ListColors),
		unaryMethod(MethodAddColor, WorkshopServer.AddColor),
		unaryMethod(MethodDeleteColor, WorkshopServer.DeleteColor),
		unaryMethod(MethodMoveColor, WorkshopServer.MoveColor),
		unaryMethod(MethodListCombinations, WorkshopServer.ListCombinations),
		unaryMethod(MethodSaveCombination, WorkshopServer.SaveCombination),
		unaryMethod(MethodDeleteCombination, WorkshopServer.DeleteCombination),
		unaryMethod(MethodFindCombination, WorkshopServer.FindCombination),
		unaryMethod(MethodGetMedia, WorkshopServer.GetMedia),
		unaryMethod(MethodListOrders, WorkshopServer.ListOrders),
		unaryMethod(MethodGetOrder, WorkshopServer.GetOrder),
		unaryMethod(MethodCreateOrder, WorkshopServer.CreateOrder),
		unaryMethod(MethodSetOrderStatus, WorkshopServer.SetOrderStatus),
		unaryMethod(MethodDeleteOrder, WorkshopServer.DeleteOrder),
		unaryMethod(MethodGetReport, WorkshopServer.GetReport),
		unaryMethod(MethodListNotifications, WorkshopServer.ListNotifications),
		unaryMethod(MethodListMutations, WorkshopServer.ListMutations),
		unaryMethod(MethodRetryFailed, WorkshopServer.RetryFailed),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    MethodWatchNotifications,
		Handler:       watchNotificationsHandler,
		ServerStreams: true,
	}},
	Metadata: "stitchboard/v1/workshop.proto",
}

// RegisterWorkshopServer регистрирует реализацию на сервере.
func RegisterWorkshopServer(s grpc.ServiceRegistrar, srv WorkshopServer) {
	s.RegisterService(&WorkshopServiceDesc, srv)
}

// FullMethod возвращает полное имя метода вида /stitchboard.v1.Workshop/Name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// WorkshopClient — клиент Workshop поверх произвольного соединения.
type WorkshopClient struct {
	cc grpc.ClientConnInterface
}

// NewWorkshopClient создаёт клиента.
func NewWorkshopClient(cc grpc.ClientConnInterface) *WorkshopClient {
	return &WorkshopClient{cc: cc}
}

// Call вызывает унарный метод; nil-запрос отправляется как пустой объект.
func (c *WorkshopClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchNotifications открывает поток уведомлений.
func (c *WorkshopClient) WatchNotifications(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	stream, err := c.cc.NewStream(ctx, &WorkshopServiceDesc.Streams[0], FullMethod(MethodWatchNotifications), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
