package logger

import (
	"time"

	"github.com/rs/zerolog"
)

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt64
	kindUint64
	kindFloat64
	kindBool
	kindDuration
	kindTime
	kindError
	kindAny
)

// Field is a typed key/value pair attached to a log entry.
type Field struct {
	key   string
	kind  fieldKind
	str   string
	i64   int64
	u64   uint64
	f64   float64
	b     bool
	t     time.Time
	err   error
	value any
}

// Key returns the field name.
func (f Field) Key() string { return f.key }

func String(key, value string) Field { return Field{key: key, kind: kindString, str: value} }
func Int(key string, value int) Field { return Field{key: key, kind: kindInt64, i64: int64(value)} }
func Int64(key string, value int64) Field {
	return Field{key: key, kind: kindInt64, i64: value}
}
func Uint64(key string, value uint64) Field {
	return Field{key: key, kind: kindUint64, u64: value}
}
func Float64(key string, value float64) Field {
	return Field{key: key, kind: kindFloat64, f64: value}
}
func Bool(key string, value bool) Field { return Field{key: key, kind: kindBool, b: value} }
func Duration(key string, value time.Duration) Field {
	return Field{key: key, kind: kindDuration, i64: int64(value)}
}
func Time(key string, value time.Time) Field { return Field{key: key, kind: kindTime, t: value} }
func Any(key string, value any) Field       { return Field{key: key, kind: kindAny, value: value} }

// Error attaches err under the "error" key. A nil error is logged as null.
func Error(err error) Field { return Field{key: zerolog.ErrorFieldName, kind: kindError, err: err} }

func (f Field) applyEvent(ev *zerolog.Event) *zerolog.Event {
	switch f.kind {
	case kindString:
		return ev.Str(f.key, f.str)
	case kindInt64:
		return ev.Int64(f.key, f.i64)
	case kindUint64:
		return ev.Uint64(f.key, f.u64)
	case kindFloat64:
		return ev.Float64(f.key, f.f64)
	case kindBool:
		return ev.Bool(f.key, f.b)
	case kindDuration:
		return ev.Dur(f.key, time.Duration(f.i64))
	case kindTime:
		return ev.Time(f.key, f.t)
	case kindError:
		return ev.AnErr(f.key, f.err)
	default:
		return ev.Interface(f.key, f.value)
	}
}

func (f Field) applyContext(ctx zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return ctx.Str(f.key, f.str)
	case kindInt64:
		return ctx.Int64(f.key, f.i64)
	case kindUint64:
		return ctx.Uint64(f.key, f.u64)
	case kindFloat64:
		return ctx.Float64(f.key, f.f64)
	case kindBool:
		return ctx.Bool(f.key, f.b)
	case kindDuration:
		return ctx.Dur(f.key, time.Duration(f.i64))
	case kindTime:
		return ctx.Time(f.key, f.t)
	case kindError:
		return ctx.AnErr(f.key, f.err)
	default:
		return ctx.Interface(f.key, f.value)
	}
}
