package service

import "errors"

var (
	ErrRunInProgress      = errors.New("sync already running")
	ErrUnauthorizedSecret = errors.New("invalid cron secret")
	ErrForbidden          = errors.New("insufficient permissions for company")
	ErrNotFound           = errors.New("not found")
)
