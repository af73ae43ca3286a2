package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService   = "service"
	FieldComponent = "component"

	// Bridge
	FieldAddress    = "address"
	FieldValue      = "value"
	FieldScene      = "scene"
	FieldSource     = "source"
	FieldRole       = "role"
	FieldUpdateType = "update_type"
	FieldRequest    = "request_type"
	FieldMessageID  = "message_id"
	FieldEventType  = "event_type"
)
