package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockwatch/internal/health"

	"github.com/spf13/cobra"
)

// ErrUnhealthy is returned by the health command when any check fails.
var ErrUnhealthy = errors.New("health check failed")

// NewHealthCommand creates the health command used as a container health check.
func NewHealthCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check state backend connectivity and the age of the last fetch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			var pinger health.Pinger
			backend, err := openStore(cmd.Context(), cfg)
			if err != nil {
				pinger = failedPinger{err: err}
			} else {
				defer backend.Close()
				pinger = backend
			}

			checker := health.NewChecker(
				pinger,
				health.NewHeartbeat(cfg.Health.TimestampFile),
				time.Duration(cfg.Health.MaxAgeSec)*time.Second,
				cfg.Timeouts.Store(),
			)
			results, ok := checker.Check(cmd.Context())

			out := cmd.OutOrStdout()
			for _, r := range results {
				mark := "ok  "
				if !r.OK {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "[%s] %s: %s\n", mark, r.Name, r.Detail)
			}
			if !ok {
				return ErrUnhealthy
			}
			fmt.Fprintln(out, "health check passed")
			return nil
		},
	}
}

// failedPinger reports the error that prevented opening the backend.
type failedPinger struct{ err error }

func (p failedPinger) Ping(context.Context) error { return p.err }
