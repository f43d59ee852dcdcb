package resources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	otelog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

var severities = map[zerolog.Level]otelog.Severity{
	zerolog.TraceLevel: otelog.SeverityTrace,
	zerolog.DebugLevel: otelog.SeverityDebug,
	zerolog.InfoLevel:  otelog.SeverityInfo,
	zerolog.WarnLevel:  otelog.SeverityWarn,
	zerolog.ErrorLevel: otelog.SeverityError,
	zerolog.FatalLevel: otelog.SeverityFatal,
	zerolog.PanicLevel: otelog.SeverityFatal4,
}

// ZerologHook mirrors every leveled zerolog entry as an OTel log record.
// The record carries the entry's fields plus the service identity.
type ZerologHook struct {
	logger   otelog.Logger
	identity []otelog.KeyValue
}

func NewZerologHook(serviceName string, serviceVersion string) *ZerologHook {
	return &ZerologHook{
		logger: global.GetLoggerProvider().Logger(serviceName),
		identity: []otelog.KeyValue{
			otelog.String("service.name", serviceName),
			otelog.String("service.version", serviceVersion),
		},
	}
}

func (h *ZerologHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	severity, ok := severities[level]
	if !ok {
		return
	}

	fields := eventFields(e)

	var rec otelog.Record

	rec.SetTimestamp(fieldTime(fields))
	rec.SetSeverity(severity)
	rec.SetSeverityText(level.String())
	rec.SetBody(otelog.StringValue(msg))

	for k, v := range fields {
		if k == zerolog.TimestampFieldName || k == zerolog.LevelFieldName || k == zerolog.MessageFieldName {
			continue
		}

		rec.AddAttributes(otelog.KeyValue{Key: k, Value: logValue(v)})
	}

	rec.AddAttributes(h.identity...)

	h.logger.Emit(e.GetCtx(), rec)
}

// eventFields decodes the fields written so far. zerolog keeps them in an
// unexported, still unterminated JSON buffer.
func eventFields(e *zerolog.Event) map[string]any {
	if e == nil {
		return nil
	}

	buf := reflect.ValueOf(e).Elem().FieldByName("buf")
	if !buf.IsValid() || buf.Kind() != reflect.Slice || buf.Len() == 0 {
		return nil
	}

	raw := append(append([]byte(nil), buf.Bytes()...), '}')

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any

	err := dec.Decode(&fields)
	if err != nil {
		return nil
	}

	return fields
}

func fieldTime(fields map[string]any) time.Time {
	s, ok := fields[zerolog.TimestampFieldName].(string)
	if !ok {
		return time.Now()
	}

	for _, layout := range []string{zerolog.TimeFieldFormat, time.RFC3339Nano} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}

	return time.Now()
}

func logValue(v any) otelog.Value {
	switch x := v.(type) {
	case string:
		return otelog.StringValue(x)
	case bool:
		return otelog.BoolValue(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return otelog.Int64Value(i)
		}

		f, _ := x.Float64()

		return otelog.Float64Value(f)
	case []any:
		values := make([]otelog.Value, 0, len(x))
		for _, item := range x {
			values = append(values, logValue(item))
		}

		return otelog.SliceValue(values...)
	case map[string]any:
		kvs := make([]otelog.KeyValue, 0, len(x))
		for k, item := range x {
			kvs = append(kvs, otelog.KeyValue{Key: k, Value: logValue(item)})
		}

		return otelog.MapValue(kvs...)
	case nil:
		return otelog.Value{}
	default:
		return otelog.StringValue(fmt.Sprint(x))
	}
}
