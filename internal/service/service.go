package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/jwt"
)

var tracer = otel.Tracer("github.com/ChetanXpro/yesbroker/internal/service")

// base carries the tracing and logging helpers shared by every service.
type base struct {
	logger *zap.Logger
}

func newBase(logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{logger: logger}
}

func (b base) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func (b base) log() *zap.Logger {
	return b.logger
}

func (b base) audit(event string, keysAndValues ...any) {
	b.logger.Sugar().Infow(event, keysAndValues...)
}

func requireCaller(claims *jwt.Claims) error {
	if claims == nil || claims.UserID == 0 {
		return authenticationError("Authentication required")
	}
	return nil
}
