// Package custody is the asset-transfer boundary of the pool engine. The
// engine itself never moves tokens; the surrounding runtime hands validated
// amounts to a Custodian.
package custody

import (
	"context"

	"go.uber.org/zap"
)

// Custodian moves already-validated asset amounts into and out of pool
// custody.
type Custodian interface {
	Deposit(ctx context.Context, token, from string, amount uint64) error
	Withdraw(ctx context.Context, token, to string, amount uint64) error
}

// Recorder is a Custodian that records transfers without enforcing balances,
// matching a custody substrate that is infallible once amounts are validated.
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) Deposit(_ context.Context, token, from string, amount uint64) error {
	r.logger.Info("custody deposit",
		zap.String("token", token),
		zap.String("from", from),
		zap.Uint64("amount", amount),
	)
	return nil
}

func (r *Recorder) Withdraw(_ context.Context, token, to string, amount uint64) error {
	r.logger.Info("custody withdraw",
		zap.String("token", token),
		zap.String("to", to),
		zap.Uint64("amount", amount),
	)
	return nil
}
