package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldTemplateID     = "template_id"
	FieldTransactionID  = "transaction_id"
	FieldOccurrenceDate = "occurrence_date"
	FieldCategoryID     = "category_id"
	FieldBudgetID       = "budget_id"
	FieldAmountCents    = "amount_cents"
	FieldFrequency      = "frequency"
	FieldAsOf           = "as_of"
	FieldCreated        = "transactions_created"
	FieldFailed         = "templates_failed"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentScheduler  = "scheduler"
	ComponentProjector  = "projector"
	ComponentReconciler = "reconciler"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpMaterialize = "materialize"
	OpReconcile   = "reconcile"
	OpProject     = "project"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpValidate    = "validate"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)
