package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/common"
)

// ServiceName is the fully qualified gRPC service of the identity provider.
const ServiceName = "miroir.identity.v1.IdentityService"

const (
	methodCreateAccount        = "/" + ServiceName + "/CreateAccount"
	methodVerifyCredentials    = "/" + ServiceName + "/VerifyCredentials"
	methodEndSession           = "/" + ServiceName + "/EndSession"
	methodRequestPasswordReset = "/" + ServiceName + "/RequestPasswordReset"
	methodRefreshSession       = "/" + ServiceName + "/RefreshSession"
)

type GRPCProvider struct {
	endpointURL string
	conn        *grpc.ClientConn
	health      healthpb.HealthClient

	mu           sync.RWMutex
	idToken      string
	refreshToken string
}

// NewGRPCProvider builds a client for the provider at endpointURL. The
// connection is established lazily. Extra dial options are appended after
// the defaults (insecure transport, token interceptor).
func NewGRPCProvider(endpointURL string, opts ...grpc.DialOption) (*GRPCProvider, error) {
	p := &GRPCProvider{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(p.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial identity provider %s: %w", endpointURL, err)
	}
	p.conn = conn
	p.health = healthpb.NewHealthClient(conn)
	return p, nil
}

func (p *GRPCProvider) Close() error {
	return p.conn.Close()
}

// withAccessToken sets the bearer token and forwards the request id of ctx.
func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, "Bearer "+token)
	}
	if id := common.RequestID(ctx); id != "" {
		md.Set(common.RequestIDHeaderName, id)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (p *GRPCProvider) tokens() (string, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.idToken, p.refreshToken
}

func (p *GRPCProvider) setTokens(id, refresh string) {
	p.mu.Lock()
	p.idToken, p.refreshToken = id, refresh
	p.mu.Unlock()
}

func (p *GRPCProvider) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	idToken, refreshToken := p.tokens()
	err := invoker(withAccessToken(ctx, idToken), method, req, reply, cc, opts...)
	if err == nil || method == methodRefreshSession {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refreshToken == "" {
		return err
	}

	if rerr := p.refresh(ctx, cc, invoker, refreshToken); rerr != nil {
		return err
	}

	idToken, _ = p.tokens()
	return invoker(withAccessToken(ctx, idToken), method, req, reply, cc, opts...)
}

func (p *GRPCProvider) refresh(ctx context.Context, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, refreshToken string) error {
	req, err := structpb.NewStruct(map[string]any{"refresh_token": refreshToken})
	if err != nil {
		return err
	}
	reply := &structpb.Struct{}
	if err := invoker(ctx, methodRefreshSession, req, reply, cc); err != nil {
		return err
	}
	id := stringField(reply, "id_token")
	if id == "" {
		return ErrMalformedReply
	}
	next := stringField(reply, "refresh_token")
	if next == "" {
		next = refreshToken
	}
	p.setTokens(id, next)
	return nil
}

func (p *GRPCProvider) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	reply := &structpb.Struct{}
	if err := p.conn.Invoke(ctx, method, req, reply); err != nil {
		return nil, p.mapError(err)
	}
	return reply, nil
}

func (p *GRPCProvider) CreateAccount(ctx context.Context, email, password string) (models.Account, error) {
	reply, err := p.call(ctx, methodCreateAccount, map[string]any{"email": email, "password": password})
	if err != nil {
		return models.Account{}, err
	}
	return p.accept(reply, email)
}

func (p *GRPCProvider) VerifyCredentials(ctx context.Context, email, password string) (models.Account, error) {
	reply, err := p.call(ctx, methodVerifyCredentials, map[string]any{"email": email, "password": password})
	if err != nil {
		return models.Account{}, err
	}
	return p.accept(reply, email)
}

// EndSession tells the provider to revoke the current tokens and forgets
// them locally. Local tokens are dropped even if the call fails.
func (p *GRPCProvider) EndSession(ctx context.Context) error {
	defer p.setTokens("", "")
	if id, _ := p.tokens(); id == "" {
		return nil
	}
	_, err := p.call(ctx, methodEndSession, map[string]any{})
	return err
}

func (p *GRPCProvider) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := p.call(ctx, methodRequestPasswordReset, map[string]any{"email": email})
	return err
}

// Ping checks the provider through the gRPC health service.
func (p *GRPCProvider) Ping(ctx context.Context) error {
	resp, err := p.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return p.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

// Authenticated reports whether an id token is held.
func (p *GRPCProvider) Authenticated() bool {
	id, _ := p.tokens()
	return id != ""
}

// accept stores the tokens of an account reply and resolves the uid: the
// explicit uid field first, then the subject of the id token.
func (p *GRPCProvider) accept(reply *structpb.Struct, email string) (models.Account, error) {
	idToken := stringField(reply, "id_token")
	uid := stringField(reply, "uid")

	if idToken != "" {
		claims, err := parseClaims(idToken)
		if err != nil {
			return models.Account{}, fmt.Errorf("%w: %w", ErrMalformedReply, err)
		}
		if uid == "" {
			uid = claims.Subject
		}
		if e, ok := claims.Email(); ok && e != "" {
			email = e
		}
	}

	p.setTokens(idToken, stringField(reply, "refresh_token"))
	return models.Account{UID: uid, Email: email}, nil
}

type idClaims struct {
	jwt.RegisteredClaims
	EmailAddr string `json:"email,omitempty"`
}

func (c idClaims) Email() (string, bool) {
	return c.EmailAddr, c.EmailAddr != ""
}

// parseClaims reads the id token without verifying its signature; the
// provider owns the signing key and re-validates every call.
func parseClaims(token string) (idClaims, error) {
	var claims idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return idClaims{}, fmt.Errorf("parse id token: %w", err)
	}
	return claims, nil
}

func stringField(s *structpb.Struct, name string) string {
	if v, ok := s.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func (p *GRPCProvider) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAccountExists, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
