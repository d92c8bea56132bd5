package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/fieldops/fieldservice-api/internal/render"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// termFlags are the contract terms shared by both commands
type termFlags struct {
	monthly  string
	investor string
	profit   string
	months   int
	asJSON   bool
}

func (f *termFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.monthly, "monthly", "", "monthly payment of the development (required)")
	cmd.Flags().StringVar(&f.investor, "investor", "0", "amount lent by the investor")
	cmd.Flags().StringVar(&f.profit, "profit", "0", "investor share of each payment after recovery, in percent")
	cmd.Flags().IntVar(&f.months, "months", 12, "contract duration in months")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("monthly")
}

func (f *termFlags) terms() (financing.Terms, error) {
	var terms financing.Terms
	var err error
	if terms.MonthlyPayment, err = decimal.NewFromString(f.monthly); err != nil {
		return terms, fmt.Errorf("invalid --monthly %q: %w", f.monthly, err)
	}
	if terms.InvestorAmount, err = decimal.NewFromString(f.investor); err != nil {
		return terms, fmt.Errorf("invalid --investor %q: %w", f.investor, err)
	}
	if terms.ProfitPercent, err = decimal.NewFromString(f.profit); err != nil {
		return terms, fmt.Errorf("invalid --profit %q: %w", f.profit, err)
	}
	return terms, terms.Validate()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "planner",
		Short: "Project installment plans of access developments",
		Long: `Offline projections of development contracts.

Available subcommands:
  plan     - Split every month between investor and company
  schedule - List the payment and service dates of a contract`,
		SilenceUsage: true,
	}
	root.AddCommand(newPlanCmd(), newScheduleCmd())
	return root
}

func newPlanCmd() *cobra.Command {
	var f termFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Project the investor recovery plan of a contract",
		Example: `  planner plan --monthly 3000 --investor 9000 --profit 20 --months 12`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			terms, err := f.terms()
			if err != nil {
				return err
			}
			planner, err := financing.NewPlanner(terms)
			if err != nil {
				return err
			}
			plan, err := planner.Plan(f.months)
			if err != nil {
				return err
			}
			if f.asJSON {
				return writeJSON(cmd.OutOrStdout(), plan)
			}
			return writePlan(cmd.OutOrStdout(), plan)
		},
	}
	f.register(cmd)
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var f termFlags
	var start string
	var paymentDay, serviceDay int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "List the monthly payments and service visits of a contract",
		Example: `  planner schedule --monthly 3000 --investor 9000 --start 2026-01-01 --payment-day 10 --service-day 20`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			terms, err := f.terms()
			if err != nil {
				return err
			}
			startDate, err := time.Parse(dateLayout, start)
			if err != nil {
				return fmt.Errorf("invalid --start %q, expected YYYY-MM-DD", start)
			}
			entries, err := financing.GenerateSchedule(financing.Contract{
				StartDate:      startDate,
				DurationMonths: f.months,
				PaymentDay:     paymentDay,
				ServiceDay:     serviceDay,
				Terms:          terms,
			}, time.Now())
			if err != nil {
				return err
			}
			if f.asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return writeSchedule(cmd.OutOrStdout(), entries)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&start, "start", time.Now().Format(dateLayout), "contract start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&paymentDay, "payment-day", 1, "day of month payments are due")
	cmd.Flags().IntVar(&serviceDay, "service-day", 1, "day of month the service visit takes place")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePlan(w io.Writer, plan *financing.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tPhase\tInvestor\tCompany\tRemaining\t")
	for _, m := range plan.Months {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", m.Index+1, m.Phase,
			render.FormatMoney(m.Investor), render.FormatMoney(m.Company), render.FormatMoney(m.RemainingPrincipal))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRecovery months: %d", plan.RecoveryMonths)
	if !plan.RecoveredWithinTerm {
		fmt.Fprint(w, " (not recovered within the contract)")
	}
	fmt.Fprintf(w, "\nContract total:  %s\n", render.FormatMoney(plan.TotalContract))
	fmt.Fprintf(w, "Investor total:  %s\n", render.FormatMoney(plan.TotalInvestor))
	fmt.Fprintf(w, "Company total:   %s\n", render.FormatMoney(plan.TotalCompany))
	_, err := fmt.Fprintf(w, "Investor profit: %s\n", render.FormatMoney(plan.InvestorProfit))
	return err
}

func writeSchedule(w io.Writer, entries []financing.ScheduleEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Period\tDue\tService\tAmount\tInvestor\tCompany\tPhase")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.Period,
			e.DueDate.Format(dateLayout), e.ServiceDate.Format(dateLayout),
			render.FormatMoney(e.Amount), render.FormatMoney(e.Investor), render.FormatMoney(e.Company), e.Phase)
	}
	return tw.Flush()
}
