// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 根据配置初始化全局 logger，服务启动时调用一次。
func Init(serviceName, level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}
	base = zerolog.New(out).With().Timestamp().Str("service", serviceName).Logger()
}

// SetOutput 替换输出目标，测试中用来静默或捕获日志。
func SetOutput(w io.Writer) {
	base = base.Output(w)
}

// L 返回不带链路信息的基础 logger。
func L() *zerolog.Logger {
	return &base
}

// Ctx 返回带有 trace_id / span_id 的 logger，便于在 Jaeger 和日志之间跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &base
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
