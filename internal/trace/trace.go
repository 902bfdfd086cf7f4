// Package trace adapts the teacher's internal/util/trace helpers to plain
// opentracing-go, dropping the Jaeger-specific trace-ID plumbing and Pulsar
// property injection the teacher needed for its distributed msgstream
// pipeline (out of scope here, see SPEC_FULL.md §4) while keeping the
// StartSpanFromContext / LogError / NoopSpan shape call sites in
// docwriter and searchapi rely on.
package trace

import (
	"context"
	"runtime"
	"strings"

	"github.com/opentracing/opentracing-go"
	otlog "github.com/opentracing/opentracing-go/log"
)

// StartSpanFromContext starts a span named after the caller two stack
// frames up, mirroring the teacher's default-operation-name convention.
func StartSpanFromContext(ctx context.Context, opts ...opentracing.StartSpanOption) (opentracing.Span, context.Context) {
	return StartSpanFromContextWithSkip(ctx, 3, opts...)
}

// StartSpanFromContextWithSkip starts a span named after the function
// skip call frames up from here.
func StartSpanFromContextWithSkip(ctx context.Context, skip int, opts ...opentracing.StartSpanOption) (opentracing.Span, context.Context) {
	if ctx == nil {
		return NoopSpan(), nil
	}

	var pcs [1]uintptr
	n := runtime.Callers(skip, pcs[:])
	name := "unknown"
	var file string
	var line int
	if n >= 1 {
		frames := runtime.CallersFrames(pcs[:])
		frame, _ := frames.Next()
		name = frame.Function
		if lastSlash := strings.LastIndexByte(name, '/'); lastSlash > 0 {
			name = name[lastSlash+1:]
		}
		file, line = frame.File, frame.Line
	}

	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}
	span := opentracing.StartSpan(name, opts...)
	if file != "" {
		span.LogFields(otlog.String("filename", file), otlog.Int("line", line))
	}
	return span, opentracing.ContextWithSpan(ctx, span)
}

// LogError attaches err to span, a no-op when err is nil.
func LogError(span opentracing.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.LogFields(otlog.Error(err))
}

// NoopSpan returns a span that records nothing, for call sites with no
// context to propagate.
func NoopSpan() opentracing.Span {
	return opentracing.NoopTracer{}.StartSpan("noop")
}
