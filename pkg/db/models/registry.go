package models

// All lists the models owned by this service, in dependency order. Used for
// SQLite auto-migration in local runs and tests; Postgres uses goose.
func All() []any {
	return []any{
		&Wallet{},
		&Order{},
		&Settlement{},
		&Ticket{},
		&TicketMessage{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
