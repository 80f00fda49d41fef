package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&FundiProfile{},
		&PortfolioImage{},
		&Category{},
		&Job{},
		&JobImage{},
		&JobApplication{},
		&Payment{},
		&Message{},
		&Review{},
		&Notification{},
		&WalletTransaction{},
	}
}
