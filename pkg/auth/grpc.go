package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// authenticates incoming requests from their metadata.
//
// The interceptor performs the following steps:
//  1. Assigns a correlation identifier (propagated or freshly generated)
//  2. Extracts the "authorization" metadata value (bearer token)
//  3. Verifies the token using the provided [TokenVerifier]
//  4. Stores the resulting [Principal] in the request context
//  5. Extracts the propagated caller service metadata
//  6. Passes the enriched context to the handler
//
// If no authorization metadata is present or the token is invalid, the
// interceptor returns a gRPC Unauthenticated error carrying only the
// taxonomy code; the denial reason stays in the logs.
//
// The serviceName parameter identifies the current service in denial logs.
func UnaryServerInterceptor(verifier TokenVerifier, serviceName string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authenticateGRPC(ctx, verifier, serviceName)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor that
// authenticates incoming streams from their metadata.
//
// This interceptor performs the same authentication steps as
// [UnaryServerInterceptor] but wraps the stream to carry the enriched
// context.
func StreamServerInterceptor(verifier TokenVerifier, serviceName string) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authenticateGRPC(ss.Context(), verifier, serviceName)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that
// propagates the authenticated principal from the context to outgoing
// request metadata.
//
// The interceptor performs the following steps:
//  1. Retrieves the [Principal] from the context (if present)
//  2. Serializes it into gRPC metadata
//  3. Includes the caller service name and correlation identifier
//  4. Merges the principal metadata with any existing outgoing metadata
//
// If no principal is in the context, the request proceeds without principal
// metadata (allowing unauthenticated service-to-service calls where
// appropriate).
func UnaryClientInterceptor(serviceName string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		ctx = propagatePrincipalToGRPC(ctx, serviceName)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that
// propagates the authenticated principal from the context to outgoing
// stream metadata.
//
// This interceptor performs the same propagation steps as
// [UnaryClientInterceptor].
func StreamClientInterceptor(serviceName string) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		ctx = propagatePrincipalToGRPC(ctx, serviceName)
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// authenticateGRPC verifies the bearer token from incoming gRPC metadata
// and enriches the context with the principal, correlation identifier, and
// caller service.
func authenticateGRPC(ctx context.Context, verifier TokenVerifier, serviceName string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	correlationID := ""
	if ids := md.Get(HeaderCorrelationID); len(ids) > 0 {
		correlationID = ids[0]
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = ContextWithCorrelationID(ctx, correlationID)

	// Extract and verify the bearer token.
	tokens := md.Get(HeaderAuthorization)
	if len(tokens) == 0 {
		return ctx, status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	token := ExtractBearerToken(tokens[0])
	if token == "" {
		return ctx, status.Error(codes.Unauthenticated, "invalid authorization format")
	}

	principal, err := verifier.Verify(ctx, token)
	if err != nil {
		slog.WarnContext(ctx, "auth: token verification failed",
			"error", err,
			"service", serviceName,
			"correlation_id", correlationID,
		)
		return ctx, status.Error(codes.Unauthenticated, "token verification failed")
	}

	// Store the verified principal in the context.
	ctx = ContextWithPrincipal(ctx, principal)

	// Extract propagated caller service from metadata.
	if callers := md.Get(HeaderCallerService); len(callers) > 0 && callers[0] != "" {
		ctx = ContextWithCallerService(ctx, callers[0])
	}

	return ctx, nil
}

// propagatePrincipalToGRPC adds the principal from the context to outgoing
// gRPC metadata for downstream services.
func propagatePrincipalToGRPC(ctx context.Context, serviceName string) context.Context {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return ctx
	}

	headers, err := principalToHeaders(principal, serviceName, CorrelationIDFromContext(ctx))
	if err != nil {
		// Log but don't fail — principal propagation failure should not
		// prevent the outgoing call. The downstream service will simply
		// not receive the principal and will require its own
		// authentication.
		slog.WarnContext(ctx, "auth: failed to serialize principal for gRPC propagation",
			"error", err,
			"service", serviceName,
		)
		return ctx
	}

	// Convert headers to metadata pairs.
	pairs := make([]string, 0, len(headers)*2)
	for k, v := range headers {
		pairs = append(pairs, strings.ToLower(k), v)
	}
	md := metadata.Pairs(pairs...)

	// Merge with any existing outgoing metadata.
	existingMD, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = metadata.Join(existingMD, md)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// wrappedServerStream wraps a grpc.ServerStream to override its Context
// method. This is necessary because ServerStream.Context() returns the
// original stream context, which does not contain the principal added by
// the interceptor.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context containing the principal.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
