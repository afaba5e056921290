package services

import "errors"

var (
	ErrUnsupportedBackupVersion = errors.New("unsupported backup version")
	ErrActivityNotFound         = errors.New("activity not found")
	ErrInvalidActivity          = errors.New("invalid activity")
)
