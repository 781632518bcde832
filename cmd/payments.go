package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snippepay/internal/config"
	"snippepay/internal/payment"
	"snippepay/internal/pkg/utils"
)

func newClient() (*payment.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	client := payment.NewClient(payment.ClientConfig{
		BaseURL: cfg.Snippe.BaseURL,
		APIKey:  cfg.Snippe.APIKey(),
		Timeout: cfg.Snippe.Timeout,
	}, zap.NewNop())
	if !client.HasKey() {
		return nil, payment.ErrUnavailable
	}
	return client, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), time.Minute)
}

func paymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Inspect payments at Snippe",
	}
	cmd.AddCommand(paymentsListCmd())
	cmd.AddCommand(paymentStatusCmd())
	return cmd
}

func paymentsListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			list, err := client.ListPayments(ctx, limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REFERENCE\tSTATUS\tTYPE\tAMOUNT\tCREATED")
			for _, p := range list.Payments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Reference, p.Status, p.PaymentType, formatMoney(p.Amount), p.CreatedAt)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d of %d payments\n", len(list.Payments), list.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of payments to fetch")
	cmd.Flags().IntVarP(&offset, "offset", "o", 0, "number of payments to skip")
	return cmd
}

func paymentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <reference>",
		Short: "Show the current state of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			resp, err := client.GetPaymentStatus(ctx, args[0])
			if err != nil {
				return err
			}
			d := resp.Data
			fmt.Printf("Reference: %s\n", d.Reference)
			fmt.Printf("Status:    %s\n", d.Status)
			fmt.Printf("Type:      %s\n", d.PaymentType)
			fmt.Printf("Amount:    %s\n", formatMoney(d.Amount))
			if d.ExternalReference != "" {
				fmt.Printf("External:  %s\n", d.ExternalReference)
			}
			if d.FailureReason != "" {
				fmt.Printf("Failure:   %s\n", d.FailureReason)
			}
			if s := d.Settlement; s != nil {
				fmt.Printf("Settled:   gross %s, fees %s, net %s\n", formatMoney(s.Gross), formatMoney(s.Fees), formatMoney(s.Net))
			}
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the merchant account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			bal, err := client.GetBalance(ctx)
			if err != nil {
				return err
			}
			for _, m := range bal.Available {
				fmt.Printf("Available: %s\n", utils.FormatAmount(m.Value, m.Currency))
			}
			for _, m := range bal.Pending {
				fmt.Printf("Pending:   %s\n", utils.FormatAmount(m.Value, m.Currency))
			}
			return nil
		},
	}
}

func formatMoney(m *payment.Money) string {
	if m == nil {
		return "-"
	}
	return utils.FormatAmount(m.Value, m.Currency)
}
