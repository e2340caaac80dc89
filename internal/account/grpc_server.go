package account

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The account directory is served over gRPC with well-known protobuf types as
// messages, so no generated stubs are needed:
//
//	GetAccount(google.protobuf.Int64Value) returns (google.protobuf.Struct)
//	ListAccounts(google.protobuf.StringValue) returns (google.protobuf.ListValue)
const (
	serviceName        = "account.v1.AccountService"
	getAccountMethod   = "/" + serviceName + "/GetAccount"
	listAccountsMethod = "/" + serviceName + "/ListAccounts"
)

// DirectoryServer is the server side of the account directory.
type DirectoryServer interface {
	GetAccount(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListAccounts(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Register attaches the directory to a gRPC server.
func Register(s *grpc.Server, srv DirectoryServer) {
	s.RegisterService(&directoryServiceDesc, srv)
}

// GetAccount
func (s *Service) GetAccount(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if in.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	a, err := s.repo.GetByID(ctx, in.GetValue())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, status.Error(codes.NotFound, "account not found")
		}
		s.logger.Error("account lookup failed", zap.Int64("account_id", in.GetValue()), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "get error: %v", err)
	}
	out, err := encodeAccount(*a)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode error: %v", err)
	}
	return out, nil
}

// ListAccounts
func (s *Service) ListAccounts(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	role := Role(in.GetValue())
	switch role {
	case RoleAdmin, RoleSeller, RoleCustomer:
	default:
		return nil, status.Error(codes.InvalidArgument, "unknown role")
	}
	accounts, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		s.logger.Error("account listing failed", zap.String("role", string(role)), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "list error: %v", err)
	}
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(accounts))}
	for _, a := range accounts {
		st, err := encodeAccount(a)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode error: %v", err)
		}
		list.Values = append(list.Values, structpb.NewStructValue(st))
	}
	return list, nil
}

func encodeAccount(a Account) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":         a.ID,
		"email":      a.Email,
		"name":       a.Name,
		"role":       string(a.Role),
		"status":     string(a.Status),
		"created_at": a.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": a.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

var directoryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAccount", Handler: getAccountHandler},
		{MethodName: "ListAccounts", Handler: listAccountsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "account/v1/account.proto",
}

func getAccountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DirectoryServer).GetAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getAccountMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DirectoryServer).GetAccount(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func listAccountsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DirectoryServer).ListAccounts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listAccountsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DirectoryServer).ListAccounts(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
