package gremlink

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricFrameInBytes       = []string{"gremlink", "frame", "in", "bytes"}
	MetricFrameInErrorCount  = []string{"gremlink", "frame", "in", "error", "count"}
	MetricFrameOutBytes      = []string{"gremlink", "frame", "out", "bytes"}
	MetricFrameOutErrorCount = []string{"gremlink", "frame", "out", "error", "count"}
	MetricFrameDropCount     = []string{"gremlink", "frame", "drop", "count"}
	MetricRequestCount       = []string{"gremlink", "request", "count"}
	MetricRequestErrorCount  = []string{"gremlink", "request", "error", "count"}
	MetricRequestPending     = []string{"gremlink", "request", "pending"}
	MetricChunkInCount       = []string{"gremlink", "chunk", "in", "count"}
	MetricOrphanCount        = []string{"gremlink", "orphan", "count"}
	MetricAuthChallengeCount = []string{"gremlink", "auth", "challenge", "count"}
	MetricConnEstCount       = []string{"gremlink", "connection", "established", "count"}
	MetricConnErrorCount     = []string{"gremlink", "connection", "error", "count"}
)

type TelemetryLabel string

var (
	LabelError      TelemetryLabel = "error"
	LabelRequestID  TelemetryLabel = "request_id"
	LabelStatusCode TelemetryLabel = "status_code"
	LabelRemoteAddr TelemetryLabel = "remote_addr"
	LabelOp         TelemetryLabel = "op"
	LabelDuration   TelemetryLabel = "duration"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
