package mocks

// MockAPI stands in for the auth backend client, MockNotifier for the UI.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=mocks.go github.com/aussiebroadwan/praxis/internal/session API,Notifier
