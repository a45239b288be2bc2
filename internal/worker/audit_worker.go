package worker

// HandlerRegistrar subscribes its handlers to the event dispatcher.
type HandlerRegistrar interface {
	RegisterHandlers()
}

// StartAuditWorker registers routing audit handlers.
func StartAuditWorker(audit HandlerRegistrar) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}
