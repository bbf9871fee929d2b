package models

// All lists every model handled by AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&ProviderAccount{},
		&Group{},
		&UserGroup{},
		&Planner{},
		&Event{},
		&UserMessage{},
		&ContactMessage{},
		&BillingWebhookEvent{},
	}
}
