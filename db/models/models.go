package models

var registeredModels []any

func registerModel(model any) {
	registeredModels = append(registeredModels, model)
}

// GetModels returns every registered model for AutoMigrate.
func GetModels() []any {
	return registeredModels
}
