package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wyfcoding/creditpool/xerrors"
)

// varianceSplitTolerance 系统性与特质性方差占比之和与 1 的允许偏差.
const varianceSplitTolerance = 1e-9

// Simulation 是单次运行的不可变配置. 各阶段按值接收，运行期间不得修改.
type Simulation struct {
	Pool       PoolConfig       `mapstructure:"pool"        toml:"pool"        json:"pool"`
	Grid       GridConfig       `mapstructure:"grid"        toml:"grid"        json:"grid"`
	Rates      RateConfig       `mapstructure:"rates"       toml:"rates"       json:"rates"`
	Loan       LoanConfig       `mapstructure:"loan"        toml:"loan"        json:"loan"`
	Collateral CollateralConfig `mapstructure:"collateral"  toml:"collateral"  json:"collateral"`
	Default    DefaultConfig    `mapstructure:"default"     toml:"default"     json:"default"`
	Recovery   RecoveryConfig   `mapstructure:"recovery"    toml:"recovery"    json:"recovery"`
	Capital    CapitalConfig    `mapstructure:"capital"     toml:"capital"     json:"capital"`
	MonteCarlo MonteCarloConfig `mapstructure:"monte_carlo" toml:"monte_carlo" json:"monte_carlo"`
}

// PoolConfig 资金池结构.
type PoolConfig struct {
	TotalCorpus  float64 `mapstructure:"total_corpus"  toml:"total_corpus"  json:"total_corpus"  validate:"gt=0"`
	NumInvestors int     `mapstructure:"num_investors" toml:"num_investors" json:"num_investors" validate:"gt=0"`
	NumProjects  int     `mapstructure:"num_projects"  toml:"num_projects"  json:"num_projects"  validate:"gt=0"`
}

// GridConfig 时间网格.
type GridConfig struct {
	HorizonYears int `mapstructure:"horizon_years"  toml:"horizon_years"  json:"horizon_years"  validate:"gt=0,lte=50"`
	StepsPerYear int `mapstructure:"steps_per_year" toml:"steps_per_year" json:"steps_per_year" validate:"gt=0,lte=12"`
}

// RateConfig 对数正态远期利率模型参数.
type RateConfig struct {
	InitialRate float64 `mapstructure:"initial_rate" toml:"initial_rate" json:"initial_rate" validate:"gte=0,lte=1"`
	Drift       float64 `mapstructure:"drift"        toml:"drift"        json:"drift"        validate:"gte=-1,lte=1"`
	Volatility  float64 `mapstructure:"volatility"   toml:"volatility"   json:"volatility"   validate:"gte=0,lte=1"`
	Correlation float64 `mapstructure:"correlation"  toml:"correlation"  json:"correlation"  validate:"gte=0,lte=1"`
}

// LoanConfig 贷款条款.
type LoanConfig struct {
	Coupon        float64 `mapstructure:"coupon"         toml:"coupon"         json:"coupon"         validate:"gte=0,lte=1"`
	MaturityYears int     `mapstructure:"maturity_years" toml:"maturity_years" json:"maturity_years" validate:"gt=0"`
	Amortizing    bool    `mapstructure:"amortizing"     toml:"amortizing"     json:"amortizing"`
}

// CollateralConfig 抵押物两因子 GBM 参数.
type CollateralConfig struct {
	InitialValue       float64 `mapstructure:"initial_value"       toml:"initial_value"       json:"initial_value"       validate:"gt=0,lte=1e12"`
	Drift              float64 `mapstructure:"drift"               toml:"drift"               json:"drift"               validate:"gte=-1,lte=1"`
	Volatility         float64 `mapstructure:"volatility"          toml:"volatility"          json:"volatility"          validate:"gte=0,lte=1"`
	SystemicShare      float64 `mapstructure:"systemic_share"      toml:"systemic_share"      json:"systemic_share"      validate:"gte=0,lte=1"`
	IdiosyncraticShare float64 `mapstructure:"idiosyncratic_share" toml:"idiosyncratic_share" json:"idiosyncratic_share" validate:"gte=0,lte=1"`
}

// DefaultConfig 覆盖率分层的违约强度参数.
type DefaultConfig struct {
	BaseHazard  float64 `mapstructure:"base_hazard"  toml:"base_hazard"  json:"base_hazard"  validate:"gte=0,lte=1"`
	Threshold1  float64 `mapstructure:"threshold_1"  toml:"threshold_1"  json:"threshold_1"  validate:"gte=0"`
	Threshold2  float64 `mapstructure:"threshold_2"  toml:"threshold_2"  json:"threshold_2"  validate:"gte=0"`
	Multiplier1 float64 `mapstructure:"multiplier_1" toml:"multiplier_1" json:"multiplier_1" validate:"gte=1"`
	Multiplier2 float64 `mapstructure:"multiplier_2" toml:"multiplier_2" json:"multiplier_2" validate:"gte=1"`
}

// RecoveryConfig 违约回收参数.
type RecoveryConfig struct {
	Rate            float64 `mapstructure:"rate"             toml:"rate"             json:"rate"             validate:"gte=0,lte=1"`
	LiquidationCost float64 `mapstructure:"liquidation_cost" toml:"liquidation_cost" json:"liquidation_cost" validate:"gte=0,lte=1"`
}

// CapitalConfig 扩展资本结构 (投资人债权 / 发起人股权 / 管理人费用).
type CapitalConfig struct {
	Enabled           bool    `mapstructure:"enabled"             toml:"enabled"             json:"enabled"`
	DebtShare         float64 `mapstructure:"debt_share"          toml:"debt_share"          json:"debt_share"          validate:"gte=0,lte=1"`
	EquityShare       float64 `mapstructure:"equity_share"        toml:"equity_share"        json:"equity_share"        validate:"gte=0,lte=1"`
	InvestorRate      float64 `mapstructure:"investor_rate"       toml:"investor_rate"       json:"investor_rate"       validate:"gte=0,lte=1"`
	ManagementFeeRate float64 `mapstructure:"management_fee_rate" toml:"management_fee_rate" json:"management_fee_rate" validate:"gte=0,lte=1"`
	ProfitSplit       float64 `mapstructure:"profit_split"        toml:"profit_split"        json:"profit_split"        validate:"gte=0,lte=1"`
	ExitYear          int     `mapstructure:"exit_year"           toml:"exit_year"           json:"exit_year"           validate:"gte=0"`
}

// MonteCarloConfig 蒙特卡洛控制参数.
type MonteCarloConfig struct {
	Paths   int    `mapstructure:"paths"   toml:"paths"   json:"paths"   validate:"gt=0"`
	Seed    uint64 `mapstructure:"seed"    toml:"seed"    json:"seed"`
	Workers int    `mapstructure:"workers" toml:"workers" json:"workers" validate:"gte=0"`
}

// DefaultSimulation 返回与原始标定一致的默认参数.
func DefaultSimulation() Simulation {
	return Simulation{
		Pool: PoolConfig{TotalCorpus: 100_000_000, NumInvestors: 10, NumProjects: 10},
		Grid: GridConfig{HorizonYears: 10, StepsPerYear: 1},
		Rates: RateConfig{
			InitialRate: 0.08,
			Drift:       0.0,
			Volatility:  0.15,
			Correlation: 0.80,
		},
		Loan: LoanConfig{Coupon: 0.12, MaturityYears: 10},
		Collateral: CollateralConfig{
			InitialValue:       20_000_000,
			Drift:              0.05,
			Volatility:         0.15,
			SystemicShare:      0.60,
			IdiosyncraticShare: 0.40,
		},
		Default: DefaultConfig{
			BaseHazard:  0.03,
			Threshold1:  1.2,
			Threshold2:  1.0,
			Multiplier1: 2.0,
			Multiplier2: 4.0,
		},
		Recovery: RecoveryConfig{Rate: 0.70, LiquidationCost: 0.05},
		Capital: CapitalConfig{
			DebtShare:         0.70,
			EquityShare:       0.30,
			InvestorRate:      0.10,
			ManagementFeeRate: 0.02,
			ProfitSplit:       0.80,
			ExitYear:          7,
		},
		MonteCarlo: MonteCarloConfig{Paths: 5000, Seed: 42},
	}
}

// DT 单步时长 (年).
func (s Simulation) DT() float64 { return 1.0 / float64(s.Grid.StepsPerYear) }

// NumSteps 总步数 = horizon × steps-per-year.
func (s Simulation) NumSteps() int { return s.Grid.HorizonYears * s.Grid.StepsPerYear }

// NumTenors 远期利率期限数，每步一个期限外加起点.
func (s Simulation) NumTenors() int { return s.NumSteps() + 1 }

// LoanPerProject 每个项目的放款金额.
func (s Simulation) LoanPerProject() float64 {
	return s.Pool.TotalCorpus / float64(s.Pool.NumProjects)
}

// InvestmentPerInvestor 每位投资人的出资.
func (s Simulation) InvestmentPerInvestor() float64 {
	return s.Pool.TotalCorpus / float64(s.Pool.NumInvestors)
}

// MaturityStep 贷款到期所在的时间步.
func (s Simulation) MaturityStep() int { return s.Loan.MaturityYears * s.Grid.StepsPerYear }

// ExitStep 扩展资本结构的退出时间步. ExitYear 为 0 时在期末退出.
func (s Simulation) ExitStep() int {
	if s.Capital.ExitYear == 0 {
		return s.NumSteps()
	}
	return s.Capital.ExitYear * s.Grid.StepsPerYear
}

// IsAnnualBoundary 判断时间步是否落在整年边界.
func (s Simulation) IsAnnualBoundary(step int) bool {
	return step > 0 && step%s.Grid.StepsPerYear == 0
}

// Variant 返回运行变体名称，用于日志与指标.
func (s Simulation) Variant() string {
	if s.Capital.Enabled {
		return "capital"
	}
	return "pool"
}

var simValidator = validator.New()

// Validate 在任何模拟开始前快速失败，错误中的 Field 指出非法字段.
func (s Simulation) Validate() error {
	if err := simValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return xerrors.InvalidField(fieldPath(fe.StructNamespace()),
				"failed %q constraint (%s), got %v", fe.Tag(), fe.Param(), fe.Value())
		}
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid simulation config")
	}

	if split := s.Collateral.SystemicShare + s.Collateral.IdiosyncraticShare; math.Abs(split-1) > varianceSplitTolerance {
		return xerrors.InvalidField("collateral.idiosyncratic_share",
			"systemic + idiosyncratic variance shares must sum to 1, got %v", split)
	}
	if s.Default.Threshold2 > s.Default.Threshold1 {
		return xerrors.InvalidField("default.threshold_2",
			"must not exceed threshold_1 (%v), got %v", s.Default.Threshold1, s.Default.Threshold2)
	}
	if s.Rates.Correlation >= 1 && s.NumTenors() > 1 {
		return xerrors.InvalidField("rates.correlation",
			"must be below 1 for a positive definite tenor correlation, got %v", s.Rates.Correlation)
	}
	if s.Loan.MaturityYears > s.Grid.HorizonYears {
		return xerrors.InvalidField("loan.maturity_years",
			"must not exceed horizon_years (%d), got %d", s.Grid.HorizonYears, s.Loan.MaturityYears)
	}
	if s.Capital.Enabled {
		if shares := s.Capital.DebtShare + s.Capital.EquityShare; math.Abs(shares-1) > varianceSplitTolerance {
			return xerrors.InvalidField("capital.equity_share",
				"debt + equity shares must sum to 1, got %v", shares)
		}
		if s.Capital.ExitYear > s.Grid.HorizonYears {
			return xerrors.InvalidField("capital.exit_year",
				"must not exceed horizon_years (%d), got %d", s.Grid.HorizonYears, s.Capital.ExitYear)
		}
	}
	return nil
}

// ValidatePaths 校验路径数，供按调用方指定路径数的入口使用.
func ValidatePaths(paths int) error {
	if paths <= 0 {
		return xerrors.ErrInvalidPathCount.WithField("monte_carlo.paths").
			WithDetail("path count must be positive, got %d", paths)
	}
	return nil
}

// fieldPath 将 "Simulation.Rates.Volatility" 转换为 "rates.volatility".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if i > 0 && (isUpper && !(runes[i-1] >= 'A' && runes[i-1] <= 'Z') || isDigit && !(runes[i-1] >= '0' && runes[i-1] <= '9')) {
			b.WriteByte('_')
		}
		if isUpper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// String 简要描述, 用于日志.
func (s Simulation) String() string {
	return fmt.Sprintf("variant=%s projects=%d steps=%d paths=%d seed=%d",
		s.Variant(), s.Pool.NumProjects, s.NumSteps(), s.MonteCarlo.Paths, s.MonteCarlo.Seed)
}
