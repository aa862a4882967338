// Package core provides the business logic of the CRM: customers, deals
// and activities, the sales pipeline, CSV import and export, dashboard
// analytics and scheduled reports.
//
// The package has no knowledge of HTTP. Web handlers, the scheduler and
// tests all go through [Service].
//
// # Persistence
//
// [Service] works against the [Store] interface. [PostgresStore] is the
// production implementation on pgx; [MemoryStore] backs tests and the
// "memory" database driver. Email templates live in a separate key-value
// store (see package kv).
//
// # Sales Pipeline
//
// Deals move through LEAD, QUALIFIED, PROPOSAL, NEGOTIATION and end in WON
// or LOST. [Service.MoveDealToStage] validates every move against the
// transition table and applies it atomically:
//
//	deal, err := svc.MoveDealToStage(ctx, id, "WON")
//	if errors.Is(err, core.ErrInvalidTransition) {
//	    // deal is unchanged
//	}
//
// # Import
//
// [Service.ImportCustomers] reads a CSV stream row by row. Bad rows are
// counted and reported as "Row N: message"; they never abort the import.
// Imports run one at a time through the [ImportLimiter].
//
// # Error Handling
//
// Errors fall into five categories, tested with errors.Is: [ErrNotFound],
// [ErrDuplicate], [ErrInvalidTransition], [ErrValidation] and [ErrIO].
// [MapError] turns any error into a user message with a support code.
package core
