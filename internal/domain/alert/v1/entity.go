package alertv1

import (
	"time"
)

// Type represents the kind of alert raised by the engine.
type Type string

const (
	// TypeHighPriority signals pressure from high-priority trades in the queue.
	TypeHighPriority Type = "HIGH_PRIORITY"
	// TypeRiskLimit signals a risk limit was hit.
	TypeRiskLimit Type = "RISK_LIMIT"
	// TypeExecutionFailed signals a gateway failure or timeout.
	TypeExecutionFailed Type = "EXECUTION_FAILED"
	// TypeSystemError signals an internal failure.
	TypeSystemError Type = "SYSTEM_ERROR"
	// TypeConnectionLost signals the market data stream exhausted its
	// reconnect attempts.
	TypeConnectionLost Type = "CONNECTION_LOST"
)

// Severity represents the operator-facing severity of an alert.
type Severity string

const (
	// SeverityLow indicates an informational alert.
	SeverityLow Severity = "LOW"
	// SeverityMedium indicates an alert that should be looked at.
	SeverityMedium Severity = "MEDIUM"
	// SeverityHigh indicates an alert that needs prompt attention.
	SeverityHigh Severity = "HIGH"
	// SeverityCritical indicates an alert that needs immediate attention.
	SeverityCritical Severity = "CRITICAL"
)

// Alert represents a structured alert for the consuming operator tooling.
type Alert struct {
	Type      Type              `json:"type"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Symbol    string            `json:"symbol,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New creates an alert stamped with the current time.
func New(alertType Type, severity Severity, message, symbol string) Alert {
	return Alert{
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata returns a copy of the alert with the given metadata attached.
func (a Alert) WithMetadata(meta map[string]string) Alert {
	a.Metadata = meta
	return a
}
