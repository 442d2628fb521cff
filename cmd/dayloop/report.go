package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"daily_loop/internal/config"
	"daily_loop/internal/indicators"
	"daily_loop/internal/logger"
	"daily_loop/internal/market"
)

const reportLookbackDays = 182 // roughly six months of calendar days

// newATRReportCmd prints ATR statistics for the configured symbol along
// with suggested min_atr/max_atr guardrail thresholds, so the bounds in
// the config can be re-tuned as the symbol's volatility profile moves.
func newATRReportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "atr-report",
		Short: "Analyze ATR history and suggest guardrail thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Setup("", 0, 0)

			var provider market.DataProvider
			if cfg.DataSource == "alpaca" && alpacaCredsPresent(cfg) {
				provider = market.NewAlpacaProvider(cfg)
			} else {
				provider = market.NewYahooProvider()
			}

			bars, err := provider.GetDailyBars(cfg.Symbol, reportLookbackDays)
			if err != nil {
				return fmt.Errorf("fetch %s history: %w", cfg.Symbol, err)
			}

			series := indicators.ATRSeries(bars, 14)
			if len(series) == 0 {
				return fmt.Errorf("not enough history for an ATR report: %d bars", len(bars))
			}

			price := bars[len(bars)-1].Close
			current := series[len(series)-1]

			rule := strings.Repeat("=", 60)
			fmt.Println(rule)
			fmt.Printf("%s ATR ANALYSIS (last %d days)\n", cfg.Symbol, reportLookbackDays)
			fmt.Println(rule)
			fmt.Printf("\nCurrent %s price: $%.2f\n", cfg.Symbol, price)
			fmt.Printf("Current ATR(14):  $%.2f (%.2f%% of price)\n", current, current/price*100)

			fmt.Println("\nATR statistics:")
			fmt.Printf("  Mean:    $%.2f (%.2f%% of price)\n", indicators.Mean(series), indicators.Mean(series)/price*100)
			fmt.Printf("  Median:  $%.2f\n", indicators.Median(series))
			fmt.Printf("  Min:     $%.2f\n", indicators.Min(series))
			fmt.Printf("  Max:     $%.2f\n", indicators.Max(series))
			fmt.Printf("  Std Dev: $%.2f\n", indicators.StdDev(series))

			p25 := indicators.Quantile(series, 0.25)
			p75 := indicators.Quantile(series, 0.75)
			p95 := indicators.Quantile(series, 0.95)
			fmt.Println("\nPercentiles:")
			fmt.Printf("  25th: $%.2f\n", p25)
			fmt.Printf("  75th: $%.2f\n", p75)
			fmt.Printf("  95th: $%.2f\n", p95)

			fmt.Println()
			fmt.Println(rule)
			fmt.Println("THRESHOLD RECOMMENDATIONS")
			fmt.Println(rule)
			fmt.Printf("\nConfigured thresholds:\n  min_atr: %.1f\n  max_atr: %.1f\n", cfg.Risk.MinATR, cfg.Risk.MaxATR)
			fmt.Printf("\nSuggested (data-driven):\n  min_atr: %.1f  (50%% below 25th percentile)\n  max_atr: %.1f  (20%% above 95th percentile)\n",
				round1(p25*0.5), round1(p95*1.2))
			fmt.Printf("\nConservative:\n  min_atr: %.1f  (25th percentile)\n  max_atr: %.1f  (1.5x the 75th percentile)\n",
				round1(p25), round1(p75*1.5))
			fmt.Printf("\nPermissive:\n  min_atr: 1.0\n  max_atr: %.1f  (just above historical max)\n",
				round1(indicators.Max(series)*1.1))
			return nil
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
