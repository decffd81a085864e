package goShop

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goShop/internal"
	"github.com/MrEthical07/goShop/internal/api"
)

const (
	auditEventExchange = "api_exchange"
	auditEventLogout   = "logout"
)

// AuditErrorCode classifies the error attached to an exchange event.
type AuditErrorCode string

const (
	auditErrTransport         AuditErrorCode = "transport"
	auditErrBackendRejected   AuditErrorCode = "backend_rejected"
	auditErrIncompletePayload AuditErrorCode = "incomplete_payload"
	auditErrCanceled          AuditErrorCode = "canceled"
	auditErrInternal          AuditErrorCode = "internal_error"
)

// observeExchange feeds every backend call into the latency histogram, the
// transport and rejection counters, and the audit stream.
func (c *Client) observeExchange(ctx context.Context, ex api.Exchange) {
	if c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricRequestLatency, ex.Latency)
	}

	switch {
	case ex.Err == nil:
	case errors.Is(ex.Err, ErrTransport):
		c.metricInc(MetricTransportError)
	case errors.Is(ex.Err, ErrBackendRejected):
		c.metricInc(MetricBackendRejected)
	}

	if ex.Err != nil {
		c.logger.Debug("backend call failed",
			"op", ex.Op,
			"status", ex.Status,
			"latency", ex.Latency,
			"error", ex.Err,
		)
	}

	if c.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: auditEventExchange,
		Op:        ex.Op,
		Status:    ex.Status,
		LatencyMS: ex.Latency.Milliseconds(),
		Success:   ex.Err == nil,
		Metadata: map[string]string{
			"method": ex.Method,
			"path":   ex.Path,
		},
	}
	if code := auditErrorCode(ex.Err); code != "" {
		event.Error = string(code)
		event.Metadata["detail"] = ex.Err.Error()
	}
	if c.config.Audit.IncludePayloads {
		event.Request = ex.Request
		event.Response = ex.Response
		event.Metadata["request_bytes"] = strconv.Itoa(len(ex.Request))
	}
	c.emitAudit(ctx, event)
}

// emitAudit stamps the device fingerprint and queues the event. It is a
// no-op without an audit dispatcher.
func (c *Client) emitAudit(ctx context.Context, event AuditEvent) {
	if c == nil || c.audit == nil {
		return
	}
	if event.DeviceID == "" {
		event.DeviceID = internal.Fingerprint(c.devices.Identity(ctx).DeviceID)
	}
	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	case errors.Is(err, ErrTransport):
		return auditErrTransport
	case errors.Is(err, ErrIncompletePayload):
		return auditErrIncompletePayload
	case errors.Is(err, ErrBackendRejected):
		return auditErrBackendRejected
	default:
		return auditErrInternal
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
