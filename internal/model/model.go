package model

// All lists every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&BookType{},
		&BookTypeField{},
		&Book{},
		&Category{},
		&PersonType{},
		&Person{},
		&Item{},
		&ItemAttribute{},
		&Purchase{},
		&Invoice{},
		&Sale{},
		&Incident{},
		&Cost{},
		&Image{},
		&Document{},
		&Subscription{},
		&Notification{},
	}
}
