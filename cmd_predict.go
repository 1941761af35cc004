package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"houseprice/app"
	"houseprice/form"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate one property from the command line",
	Long: `Estimate one property without starting the server. Fields left unset take
the same defaults as the web form.

Example:
  houseprice predict --town Lisbon --type Apartment --area 80 --no-transit-route 1`,
	RunE: runPredict,
}

// predictFlags maps each flag to the form field it fills.
var predictFlags = []struct {
	flag, field, usage string
}{
	{"town", form.Town, "Town"},
	{"type", form.Type, "Property type"},
	{"area", form.TotalArea, "Total area (whole number)"},
	{"rooms", form.TotalRooms, "Number of rooms"},
	{"bathrooms", form.NumberOfBathrooms, "Number of bathrooms"},
	{"parking", form.Parking, "Parking spaces"},
	{"elevator", form.Elevator, "Elevator, 0 or 1"},
	{"no-transit-route", form.NoTransitRoute, "No public transit route, 0 or 1"},
	{"car-time", form.CarTime, "Car time in minutes"},
	{"car-distance", form.CarDistance, "Car distance in km"},
	{"transit-time", form.TransitTime, "Public transit time in minutes"},
}

var predictValues = map[string]*string{}

func init() {
	for _, f := range predictFlags {
		v := new(string)
		predictValues[f.field] = v
		predictCmd.Flags().StringVar(v, f.flag, "", f.usage)
	}
}

func runPredict(cmd *cobra.Command, args []string) error {
	values := url.Values{}
	for field, v := range predictValues {
		if *v != "" {
			values.Set(field, *v)
		}
	}

	record, err := form.Collect(values)
	if err != nil {
		return err
	}

	res, err := app.New(cfg, log).Resources(cmd.Context())
	if err != nil {
		return err
	}
	result, err := res.Predictor.Predict(cmd.Context(), record)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Formatter.Summary(result))
	if verbose {
		for _, name := range res.Schema {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %v\n", name, result.Row[name])
		}
	}
	return nil
}
