package handler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/coffee-cart/internal/core/domain"
	"github.com/rl1809/coffee-cart/internal/core/service"
)

// CartServiceName is the fully-qualified gRPC service name. Messages are
// carried with the JSON codec, selected by the "json" content-subtype.
const CartServiceName = "coffeecart.v1.CartService"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type CartRequest struct {
	SessionID string `json:"session_id"`
}

type ProductRequest struct {
	SessionID string `json:"session_id"`
	ProductID int    `json:"product_id"`
	Amount    int    `json:"amount"`
}

type PaymentRequest struct {
	SessionID string               `json:"session_id"`
	Method    domain.PaymentMethod `json:"method"`
}

type AddressRequest struct {
	SessionID string         `json:"session_id"`
	Address   domain.Address `json:"address"`
}

// CartResponse carries the cart after the call and any notifications
// raised for the session since its last successful response.
type CartResponse struct {
	SessionID     string                `json:"session_id"`
	Cart          domain.Cart           `json:"cart"`
	ItemCount     int                   `json:"item_count"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

type CartServiceServer interface {
	GetCart(context.Context, *CartRequest) (*CartResponse, error)
	AddProduct(context.Context, *ProductRequest) (*CartResponse, error)
	UpdateProduct(context.Context, *ProductRequest) (*CartResponse, error)
	RemoveProduct(context.Context, *ProductRequest) (*CartResponse, error)
	SelectPayment(context.Context, *PaymentRequest) (*CartResponse, error)
	AddAddress(context.Context, *AddressRequest) (*CartResponse, error)
	ResetCart(context.Context, *CartRequest) (*CartResponse, error)
}

func unaryMethod[Req any](name string, call func(CartServiceServer, context.Context, *Req) (*CartResponse, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + CartServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var cartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetCart", CartServiceServer.GetCart),
		unaryMethod("AddProduct", CartServiceServer.AddProduct),
		unaryMethod("UpdateProduct", CartServiceServer.UpdateProduct),
		unaryMethod("RemoveProduct", CartServiceServer.RemoveProduct),
		unaryMethod("SelectPayment", CartServiceServer.SelectPayment),
		unaryMethod("AddAddress", CartServiceServer.AddAddress),
		unaryMethod("ResetCart", CartServiceServer.ResetCart),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coffeecart/v1/cart.json",
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&cartServiceDesc, srv)
}

type GRPCHandler struct {
	sessions *service.Sessions
	inbox    NotificationSource
	logger   *zap.Logger
}

func NewGRPCHandler(sessions *service.Sessions, inbox NotificationSource, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{sessions: sessions, inbox: inbox, logger: logger}
}

func (h *GRPCHandler) open(ctx context.Context, sessionID string) (*service.CartStore, error) {
	store, err := h.sessions.Open(ctx, sessionID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid session id")
	}
	return store, nil
}

func (h *GRPCHandler) respond(sessionID string, store *service.CartStore, err error) (*CartResponse, error) {
	if err != nil {
		return nil, h.mapError(err)
	}
	snap := store.Snapshot()
	resp := &CartResponse{SessionID: sessionID, Cart: snap, ItemCount: snap.ItemCount()}
	if h.inbox != nil {
		resp.Notifications = h.inbox.Drain(sessionID)
	}
	return resp, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	store, err := h.open(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return h.respond(req.SessionID, store, nil)
}

func (h *GRPCHandler) AddProduct(ctx context.Context, req *ProductRequest) (*CartResponse, error) {
	store, err := h.open(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return h.respond(req.SessionID, store, store.AddProduct(ctx, req.ProductID, req.Amount))
}

func (h *GRPCHandler) UpdateProduct(ctx context.Context, req *ProductRequest) (*CartResponse, error) {
	store, err := h.open(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return h.respond(req.SessionID, store, store.UpdateProduct(ctx, req.ProductID, req.Amount))
}

func (h *GRPCHandler) RemoveProduct(ctx context.Context, req *ProductRequest) (*CartResponse, error) {
	store, err := h.open(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return h.respond(req.SessionID, store, store.RemoveProduct(ctx, req.ProductID))
}

func (h *GRPCHandler) SelectPayment(ctx context.Context, req *PaymentRequest) (*CartResponse, error) {
	store, err := h.open(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return h.respond(req.SessionID, store, store.SelectPayment(ctx, req.Method))
}

func (h *GRPCHandler) AddAddress(ctx context.Context, req *AddressRequest) (*CartResponse, error) {
	store, err := h.open(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return h.respond(req.SessionID, store, store.AddAddress(ctx, req.Address))
}

func (h *GRPCHandler) ResetCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	store, err := h.open(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return h.respond(req.SessionID, store, store.ResetCart(ctx))
}

func (h *GRPCHandler) mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrUpdateFailed),
		errors.Is(err, service.ErrRemoveFailed):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		return status.Error(codes.InvalidArgument, err.Error())
	}

	h.logger.Error("cart operation failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

// CartServiceClient calls CartService over an existing connection.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func (c *CartServiceClient) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodec{}.Name())}, opts...)
	if err := c.cc.Invoke(ctx, "/"+CartServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartServiceClient) GetCart(ctx context.Context, in *CartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return c.invoke(ctx, "GetCart", in, opts...)
}

func (c *CartServiceClient) AddProduct(ctx context.Context, in *ProductRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return c.invoke(ctx, "AddProduct", in, opts...)
}

func (c *CartServiceClient) UpdateProduct(ctx context.Context, in *ProductRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return c.invoke(ctx, "UpdateProduct", in, opts...)
}

func (c *CartServiceClient) RemoveProduct(ctx context.Context, in *ProductRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return c.invoke(ctx, "RemoveProduct", in, opts...)
}

func (c *CartServiceClient) SelectPayment(ctx context.Context, in *PaymentRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return c.invoke(ctx, "SelectPayment", in, opts...)
}

func (c *CartServiceClient) AddAddress(ctx context.Context, in *AddressRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return c.invoke(ctx, "AddAddress", in, opts...)
}

func (c *CartServiceClient) ResetCart(ctx context.Context, in *CartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return c.invoke(ctx, "ResetCart", in, opts...)
}
