package repository

import "github.com/smartalerte/smartalerte/internal/errors"

var (
	ErrAlertNotFound        = errors.NewStd("alert not found")
	ErrProductNotFound      = errors.NewStd("product not found")
	ErrUserNotFound         = errors.NewStd("user not found")
	ErrNotificationNotFound = errors.NewStd("notification not found")
	ErrAlertStateNotFound   = errors.NewStd("alert state not found")
)
