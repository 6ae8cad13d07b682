package orchestrator

import (
	"time"

	"github.com/holiman/uint256"
)

// Custody directions reported to Metrics.ObserveCustody.
const (
	CustodyDeposit   = "deposit"
	CustodyWithdraw  = "withdraw"
	CustodyFees      = "fees"
	CustodyMigration = "migration"
)

// Metrics receives orchestrator telemetry.
type Metrics interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
	SetFeePool(amount *uint256.Int)
	ObserveCustody(direction string, amount *uint256.Int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, error, time.Duration) {}
func (noopMetrics) SetFeePool(*uint256.Int)                        {}
func (noopMetrics) ObserveCustody(string, *uint256.Int)            {}
