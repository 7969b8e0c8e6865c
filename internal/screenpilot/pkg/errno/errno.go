package errno

import (
	"errors"
)

var (
	ErrServerNotFound     = errors.New("tool server script not found")
	ErrServerNotActive    = errors.New("tool server is not active")
	ErrHandshakeTimeout   = errors.New("tool server handshake timed out")
	ErrHandshakeFailed    = errors.New("tool server handshake failed")
	ErrValidationFailed   = errors.New("generated tool source rejected")
	ErrCheckpointNotFound = errors.New("checkpoint file not found")
)
