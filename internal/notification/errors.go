package notification

import "github.com/smartalerte/smartalerte/internal/errors"

// ErrChannelDisabled is returned by senders whose channel is switched off.
var ErrChannelDisabled = errors.NewStd("notification channel disabled")
