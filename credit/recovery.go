package credit

import (
	"math"

	"github.com/wyfcoding/creditpool/config"
)

// RecoveryValue 违约时的一次性回收 = max(0, C·rr − C·lc).
func RecoveryValue(collateral float64, p config.RecoveryConfig) float64 {
	return math.Max(0, collateral*p.Rate-collateral*p.LiquidationCost)
}
