package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON   logFormat = "json"
	formatKV     logFormat = "kv"
	formatPretty logFormat = "pretty"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   io.Writer
	format   logFormat
	keyOrder []string
}

// lineHandler writes one json or kv line per record. Keys named in the
// configured order lead the line; the rest follow alphabetically.
type lineHandler struct {
	level  slog.Leveler
	out    io.Writer
	format logFormat
	rank   map[string]int
	attrs  []slog.Attr
}

func newStructuredHandler(cfg handlerConfig) *lineHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	order := cfg.keyOrder
	if order == nil {
		order = defaultKeyOrder
	}
	rank := make(map[string]int, len(order))
	for i, k := range order {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &lineHandler{level: cfg.level, out: cfg.writer, format: cfg.format, rank: rank}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return fmt.Errorf("logger: writer not initialized")
	}

	f := fields{
		"ts":    r.Time.UTC().Format(timeFormatMillis),
		"level": normalizeLevel(r.Level.String()),
	}
	for _, a := range h.attrs {
		f.put(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.put(a)
		return true
	})
	for _, a := range contextAttrs(ctx) {
		if _, set := f[a.Key]; !set {
			f.put(a)
		}
	}
	f.finish(r.Message, h.format == formatJSON)

	var line []byte
	if h.format == formatJSON {
		line = h.encodeJSON(f)
	} else {
		line = h.encodeKV(f)
	}
	_, err := h.out.Write(append(line, '\n'))
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup is a no-op: every component logs flat keys.
func (h *lineHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *lineHandler) keys(f fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := h.rank[keys[i]]
		rj, jok := h.rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (h *lineHandler) encodeJSON(f fields) []byte {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range h.keys(f) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		data, err := json.Marshal(f[k])
		if err != nil {
			data, _ = json.Marshal(fmt.Sprint(f[k]))
		}
		b.Write(data)
	}
	b.WriteByte('}')
	return b.Bytes()
}

func (h *lineHandler) encodeKV(f fields) []byte {
	var b bytes.Buffer
	for i, k := range h.keys(f) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(f[k])
		if strings.IndexFunc(s, needsQuote) >= 0 {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return b.Bytes()
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

// fields holds one record's values keyed by their final names.
type fields map[string]any

// put stores a under its key. Empty strings and nil values are dropped,
// durations become integer milliseconds under a *_ms key and errors are
// redacted.
func (f fields) put(a slog.Attr) {
	if a.Key == "" {
		return
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		f.putString(a.Key, v.String())
	case slog.KindInt64:
		f[a.Key] = v.Int64()
	case slog.KindUint64:
		f[a.Key] = v.Uint64()
	case slog.KindBool:
		f[a.Key] = v.Bool()
	case slog.KindDuration:
		f.putDuration(a.Key, v.Duration())
	default:
		switch x := v.Any().(type) {
		case nil:
		case error:
			f.putString(a.Key, SanitizeError(x))
		case time.Duration:
			f.putDuration(a.Key, x)
		case fmt.Stringer:
			f.putString(a.Key, x.String())
		default:
			f.putString(a.Key, fmt.Sprint(x))
		}
	}
}

func (f fields) putString(key, s string) {
	if s = strings.TrimSpace(s); s != "" {
		f[key] = s
	}
}

func (f fields) putDuration(key string, d time.Duration) {
	if !strings.HasSuffix(key, "_ms") {
		key += "_ms"
	}
	f[key] = RoundMS(d).Milliseconds()
}

// finish fills event and component defaults, lowercases status and
// shortens a UUID rid. JSON lines keep the full rid alongside.
func (f fields) finish(msg string, keepFullRID bool) {
	if _, ok := f["event"]; !ok {
		if msg == "" {
			msg = "unknown"
		}
		f["event"] = msg
	}
	if _, ok := f["component"]; !ok {
		f["component"] = "app"
	}
	if s, ok := f["status"].(string); ok {
		f["status"] = normalizeStatus(s)
	}
	if rid, ok := f["rid"].(string); ok {
		if short := CompactRID(rid); short != rid {
			f["rid"] = short
			if keepFullRID {
				f["rid_full"] = rid
			}
		}
	}
}

// contextAttrs returns the correlation values carried by ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	candidates := [...]slog.Attr{
		slog.String("rid", RIDFrom(ctx)),
		slog.String("cycle_id", CycleFrom(ctx)),
		slog.String("kind", KindFrom(ctx)),
		slog.String("update_id", UpdateIDFrom(ctx)),
		slog.String("chat_id", ChatIDFrom(ctx)),
		slog.String("handler", HandlerFrom(ctx)),
	}
	out := make([]slog.Attr, 0, len(candidates))
	for _, a := range candidates {
		if a.Value.String() != "" {
			out = append(out, a)
		}
	}
	return out
}
