// Package entities defines the GORM models persisted by the datastore.
package entities

// All returns every model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Alert{},
		&Notification{},
		&AlertState{},
	}
}
