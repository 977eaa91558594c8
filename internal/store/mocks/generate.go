package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=mocks.go github.com/aussiebroadwan/praxis/internal/store Store
