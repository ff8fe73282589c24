package errors

import (
	"bytes"
	"reflect"
	"strings"
)

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalError represents a generic internal error.
	GeneralInternalError ErrorCode = "general_internal_error"
	// GeneralValidationError represents a validation failure that must never
	// be retried automatically.
	GeneralValidationError ErrorCode = "general_validation_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"

	// ErrTransientNetwork represents a network failure that is retried with
	// bounded backoff.
	ErrTransientNetwork ErrorCode = "transient_network_error"
	// ErrRiskLimitExceeded represents a rejected operation that tripped a risk
	// limit. Never retried; an alert accompanies it.
	ErrRiskLimitExceeded ErrorCode = "risk_limit_exceeded"
	// ErrExecutionFailure represents a gateway failure or timeout while placing
	// or cancelling an order.
	ErrExecutionFailure ErrorCode = "execution_failure"
	// ErrFatalExhaustion represents exhausted reconnect attempts. It must
	// propagate to an operator, not be swallowed.
	ErrFatalExhaustion ErrorCode = "fatal_exhaustion"

	// WebsocketConnectionError represents an error while dialing the market
	// data stream.
	WebsocketConnectionError ErrorCode = "websocket_connection_error"
	// WebsocketSubscribeError represents an error while sending a subscribe command.
	WebsocketSubscribeError ErrorCode = "websocket_subscribe_error"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"

	// QuestDBExecError represents an error when executing a statement against QuestDB.
	QuestDBExecError ErrorCode = "questdb_exec_error"
	// KafkaPublishError represents an error when publishing a message to Kafka.
	KafkaPublishError ErrorCode = "kafka_publish_error"
)

// Severity represents the severity level of an error.
type Severity string

const (
	// SeverityCritical indicates a critical error that requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityHigh indicates a high severity error that should be addressed promptly.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates a medium severity error that should be addressed in due course.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates a low severity error that can be addressed at a later time.
	SeverityLow Severity = "low"
)

// Category represents the category of an error.
type Category string

const (
	// CategoryNetwork indicates an error related to network operations.
	CategoryNetwork Category = "network"
	// CategoryValidation indicates an error related to validation of input data.
	CategoryValidation Category = "validation"
	// CategoryRisk indicates an error related to risk limit enforcement.
	CategoryRisk Category = "risk"
	// CategoryExecution indicates an error related to order execution.
	CategoryExecution Category = "execution"
	// CategoryDatabase indicates an error related to database operations.
	CategoryDatabase Category = "database"
	// CategoryUnknown indicates an unknown error category.
	CategoryUnknown Category = "unknown"
)

// BaseError is an `error` type containing an array of ErrorDetails.
type BaseError struct {
	details []*ErrorDetails
}

// NewBaseError create BaseError with ErrorDetails.
func NewBaseError(details ...*ErrorDetails) *BaseError {
	return &BaseError{details: details}
}

// AddErrorDetails add more ErrorDetails to BaseError.
func (b *BaseError) AddErrorDetails(errors ...*ErrorDetails) {
	b.details = append(b.details, errors...)
}

// GetDetails get array ErrorDetails on BaseError.
func (b *BaseError) GetDetails() []*ErrorDetails {
	return b.details
}

// Error implement error interface.
func (b *BaseError) Error() string {
	buff := bytes.NewBufferString("")

	buff.WriteString("Error on\n")
	for _, err := range b.details {
		buff.WriteString("code: ")
		buff.WriteString(err.Code)
		buff.WriteString("; error: ")
		buff.WriteString(err.Error())
		buff.WriteString("; field: ")
		buff.WriteString(err.Field)
		buff.WriteString("; object: ")
		if err.Object != nil {
			buff.WriteString(reflect.TypeOf(err.Object).String())
		}
		buff.WriteString("\n")
	}

	return strings.TrimSpace(buff.String())
}

// IsAnyCodeEqual check if any ErrorDetails code is equal with given code.
func (b *BaseError) IsAnyCodeEqual(code string) bool {
	for _, d := range b.GetDetails() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// IsAllCodeEqual check if all ErrorDetails code is equal with given code.
func (b *BaseError) IsAllCodeEqual(code string) bool {
	if len(b.details) == 0 {
		return false
	}

	for _, d := range b.GetDetails() {
		if d.Code != code {
			return false
		}
	}
	return true
}
