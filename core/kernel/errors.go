package kernel

import "errors"

var (
	ErrNilApplication   = errors.New("application cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")
	ErrNilProvider      = errors.New("provider cannot be nil")
	ErrBootstrap        = errors.New("failed to bootstrap application")
	ErrProviderRegister = errors.New("failed to register provider")
	ErrProviderBoot     = errors.New("failed to boot provider")
	ErrInvalidTimezone  = errors.New("invalid timezone")
	ErrInvalidPostSize  = errors.New("invalid post max size")
)
