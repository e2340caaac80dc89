package account

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

// Client reads the account directory from account-service.
type Client struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

func Dial(addr string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn, timeout: 3 * time.Second}
}

func (c *Client) GetByID(ctx context.Context, id int64) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, getAccountMethod, wrapperspb.Int64(id), out); err != nil {
		return nil, translateStatus(err)
	}
	a := decodeAccount(out)
	return &a, nil
}

func (c *Client) ListByRole(ctx context.Context, role Role) ([]Account, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, listAccountsMethod, wrapperspb.String(string(role)), out); err != nil {
		return nil, translateStatus(err)
	}
	accounts := make([]Account, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		accounts = append(accounts, decodeAccount(v.GetStructValue()))
	}
	return accounts, nil
}

func translateStatus(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", apperr.InvalidArgument("invalid account query"), status.Convert(err).Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", apperr.Upstream("account directory unavailable"), err)
	default:
		return fmt.Errorf("account directory: %w", err)
	}
}

func decodeAccount(s *structpb.Struct) Account {
	f := s.GetFields()
	a := Account{
		ID:     int64(f["id"].GetNumberValue()),
		Email:  f["email"].GetStringValue(),
		Name:   f["name"].GetStringValue(),
		Role:   Role(f["role"].GetStringValue()),
		Status: actor.Status(f["status"].GetStringValue()),
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, f["created_at"].GetStringValue())
	a.UpdatedAt, _ = time.Parse(time.RFC3339, f["updated_at"].GetStringValue())
	return a
}
