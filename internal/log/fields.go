package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCollection = "collection"
	FieldID         = "id"
	FieldCount      = "count"
	FieldVersion    = "version"
	FieldDuration   = "duration_ms"
	FieldAmount     = "amount"
	FieldTargetID   = "payment_target_id"
	FieldClientID   = "client_id"
	FieldMonth      = "month"
	FieldBackend    = "backend"
	FieldSheetsRef  = "sheets_ref"
	FieldErrorType  = "error_type"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentLedger     = "ledger"
	ComponentBootstrap  = "bootstrap"
	ComponentRealtime   = "realtime"
	ComponentRemote     = "remote"
	ComponentStorage    = "storage"
	ComponentChangefeed = "changefeed"
	ComponentExport     = "export"
	ComponentWorker     = "worker"
	ComponentBackend    = "backend"
	ComponentCLI        = "cli"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpUpsert    = "upsert"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpReload    = "reload"
	OpBootstrap = "bootstrap"
	OpSubscribe = "subscribe"
	OpExport    = "export"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds an ErrorType category
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCollection adds the collection and, when known, the record id
func (f LogFields) WithCollection(collection, id string) LogFields {
	f[FieldCollection] = collection
	if id != "" {
		f[FieldID] = id
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
