package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"bioclas/internal/holdridge"
)

var (
	indicatorTemps    []float64
	indicatorPrecip   []float64
	indicatorClassify bool
)

// indicatorsCmd derives Holdridge indicators from monthly climate normals
var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Derive ABT, APP and PER from monthly normals",
	Long: `Computes annual biotemperature from twelve monthly mean temperatures,
annual precipitation from twelve monthly totals, and the potential
evapotranspiration ratio from both. Up to three missing months (NaN) per
series are interpolated.

Example:
  bioclas indicators \
    --temps 5.1,6.6,9.3,11.4,15.4,20.6,24.3,23.9,19.4,13.8,8.9,6.0 \
    --precip 37,35,26,47,52,25,15,10,28,49,56,56 --classify`,
	Args: cobra.NoArgs,
	RunE: runIndicators,
}

func init() {
	indicatorsCmd.Flags().Float64SliceVar(&indicatorTemps, "temps", nil, "Twelve monthly mean temperatures (°C)")
	indicatorsCmd.Flags().Float64SliceVar(&indicatorPrecip, "precip", nil, "Twelve monthly precipitation totals (mm)")
	indicatorsCmd.Flags().BoolVar(&indicatorClassify, "classify", false, "Also classify the resulting point")
	indicatorsCmd.MarkFlagRequired("temps")
	indicatorsCmd.MarkFlagRequired("precip")
}

func runIndicators(cmd *cobra.Command, args []string) error {
	temps, err := months("temps", indicatorTemps)
	if err != nil {
		return err
	}
	precip, err := months("precip", indicatorPrecip)
	if err != nil {
		return err
	}

	abt, err := holdridge.Biotemperature(temps)
	if err != nil {
		return err
	}
	app, err := holdridge.AnnualPrecipitation(precip)
	if err != nil {
		return err
	}
	in, err := holdridge.Indicators{ABT: abt, APP: app, PER: math.NaN()}.Complete()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "ABT %8.2f °C\n", in.ABT)
	fmt.Fprintf(w, "APP %8.1f mm\n", in.APP)
	fmt.Fprintf(w, "PER %8.3f\n", in.PER)

	if !indicatorClassify {
		return nil
	}
	c, err := loadClassifier()
	if err != nil {
		return err
	}
	cls, err := c.Classify(in)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	fmt.Fprintln(w)
	printClassification(w, c, in, cls)
	return nil
}

func months(flag string, values []float64) ([12]float64, error) {
	var out [12]float64
	if len(values) != 12 {
		return out, fmt.Errorf("--%s needs 12 monthly values, got %d", flag, len(values))
	}
	copy(out[:], values)
	return out, nil
}
