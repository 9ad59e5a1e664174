package cli

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/opencode-ai/animseq/internal/animd"
	"github.com/opencode-ai/animseq/internal/config"
)

var daemonAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", "", "daemon address (default from config)")
}

const rpcTimeout = 5 * time.Second

func dialDaemon(cfg *config.Config) (*animd.Client, error) {
	return animd.Dial(resolveDaemonAddr(cfg))
}

func resolveDaemonAddr(cfg *config.Config) string {
	if daemonAddr != "" {
		return daemonAddr
	}
	return cfg.DaemonAddress()
}

func rpcContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, rpcTimeout)
}

// describeRPCError turns transport failures into actionable errors.
func describeRPCError(err error, cfg *config.Config) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable:
		return &PreflightError{
			Message:  fmt.Sprintf("no daemon reachable at %s", resolveDaemonAddr(cfg)),
			Hint:     "start one with 'animseq serve' or pass --addr",
			NextStep: "animseq serve",
		}
	case codes.ResourceExhausted:
		return &PreflightError{
			Message: "daemon rate limit exceeded",
			Hint:    "slow down or raise daemon.rate_limit in the daemon's config",
		}
	default:
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
}
