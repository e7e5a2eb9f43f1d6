package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
)

type quoteOptions struct {
	postcode string
	state    string
	country  string
	grams    int
	subtotal string
	zones    string
}

func newQuoteCmd() *cobra.Command {
	opts := &quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote shipping for a parcel against the zone table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subtotal, err := catalog.ParsePriceCents(opts.subtotal)
			if err != nil {
				return fmt.Errorf("invalid --subtotal: %w", err)
			}
			table, err := shipping.LoadTableFile(opts.zones)
			if err != nil {
				return err
			}
			estimator, err := shipping.NewEstimator(table)
			if err != nil {
				return err
			}
			svc, err := services.NewShippingService(services.ShippingServiceDeps{Estimator: estimator})
			if err != nil {
				return err
			}

			quotes, err := svc.Quote(cmd.Context(), services.QuoteRequest{
				Destination: services.Destination{
					Country:  opts.country,
					State:    opts.state,
					Postcode: opts.postcode,
				},
				WeightGrams:   opts.grams,
				SubtotalCents: subtotal,
			})
			overweight := errors.Is(err, shipping.ErrOverweight)
			if err != nil && !overweight {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tLABEL\tZONE\tAMOUNT\tDAYS")
			for _, q := range quotes {
				amount := catalog.FormatMoney(q.AmountCents, table.Currency)
				if q.Free {
					amount = "free"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", q.Method, q.Label, q.ZoneCode, amount, q.EstimatedDays)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if overweight {
				fmt.Fprintln(out, "parcel exceeds the courier weight limit; only pickup is available")
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.postcode, "postcode", "", "destination postcode")
	flags.StringVar(&opts.state, "state", "", "destination state, e.g. VIC")
	flags.StringVar(&opts.country, "country", "AU", "destination country code")
	flags.IntVar(&opts.grams, "grams", 0, "parcel weight in grams")
	flags.StringVar(&opts.subtotal, "subtotal", "0", "order subtotal in dollars, e.g. 149.95")
	flags.StringVar(&opts.zones, "zones", "", "zone table YAML (default: built-in table)")
	return cmd
}
