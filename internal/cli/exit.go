package cli

import (
	"errors"

	"stockwatch/internal/common"
)

// Exit codes let the surrounding automation tell failure reasons apart.
const (
	ExitOK                = 0
	ExitError             = 1
	ExitInvalidConfig     = 2
	ExitSourceUnavailable = 3
	ExitStoreUnavailable  = 4
	ExitSinkFailed        = 5
)

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var (
		validationErr *common.ValidationError
		srcErr        *common.SourceUnavailableError
		storeErr      *common.StoreUnavailableError
		sinkErr       *common.SinkDeliveryError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &srcErr):
		return ExitSourceUnavailable
	case errors.As(err, &storeErr):
		return ExitStoreUnavailable
	case errors.As(err, &sinkErr):
		return ExitSinkFailed
	case errors.As(err, &validationErr):
		return ExitInvalidConfig
	default:
		return ExitError
	}
}
