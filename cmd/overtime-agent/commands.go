package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"Mansoor88-6/overtime-agent/internal/client"
	"Mansoor88-6/overtime-agent/internal/export"
	"Mansoor88-6/overtime-agent/internal/models"
	"Mansoor88-6/overtime-agent/internal/service"
	"Mansoor88-6/overtime-agent/internal/validation"
	"Mansoor88-6/overtime-agent/internal/workflow"

	"github.com/spf13/cobra"
)

type opener func() (*app, error)

// commandContext cancels on SIGINT/SIGTERM so a pending request is abandoned
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func newValidateCommand() *cobra.Command {
	var shiftLabel, timeIn, timeOut string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a shift and time range for overtime without submitting",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := validation.NewValidator(nil).Validate(shiftLabel, timeIn, timeOut)
			printValidation(cmd.OutOrStdout(), res)
			if !res.Valid {
				return res.Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shiftLabel, "shift", "", "Shift label (e.g. 06:00-15:00, Holiday)")
	cmd.Flags().StringVar(&timeIn, "in", "", "Time in HH:MM")
	cmd.Flags().StringVar(&timeOut, "out", "", "Time out HH:MM")
	return cmd
}

func newLookupCommand(open opener) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "lookup <employee-id>",
		Short: "Find an employee by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if refresh {
				n, err := a.service.RefreshEmployees(ctx)
				if err != nil {
					return errors.New(client.UserMessage(err))
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "loaded %d employee(s)\n", n)
			}

			e, err := a.service.LookupEmployee(ctx, args[0])
			if err != nil {
				return errors.New(client.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", e.ID, e.FullName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Reload the employee directory even if the cache is fresh")
	return cmd
}

func newSubmitCommand(open opener) *cobra.Command {
	var in service.FormInput

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an overtime record",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			res := a.service.Submit(ctx, in)
			if !res.Success {
				return errors.New(res.ErrorText())
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.EmployeeID, "id", "", "Employee ID (XXXX-XXXX-XXXXX)")
	cmd.Flags().StringVar(&in.Date, "date", "", "Work date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.TimeIn, "in", "", "Time in HH:MM")
	cmd.Flags().StringVar(&in.TimeOut, "out", "", "Time out HH:MM")
	cmd.Flags().StringVar(&in.ShiftLabel, "shift", "", "Shift label")
	cmd.Flags().StringVar(&in.DutyEngineer, "engineer", "", "Duty engineer")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Notes (max 130 characters)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newPendingCommand(open opener) *cobra.Command {
	var exportPath string

	cmd := &cobra.Command{
		Use:   "pending <employee-id>",
		Short: "List records pending confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			wf := a.newWorkflow()
			if err := wf.Search(ctx, args[0]); err != nil {
				return errors.New(client.UserMessage(err))
			}

			snap := wf.Snapshot()
			printSnapshot(cmd.OutOrStdout(), snap)

			if exportPath != "" {
				employee := models.Employee{ID: snap.EmployeeID}
				if snap.Employee != nil {
					employee = *snap.Employee
				}
				if err := export.WriteFile(exportPath, employee, snap.Records); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d record(s) to %s\n", len(snap.Records), exportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exportPath, "export", "", "Write the listed records to an .xlsx file")
	return cmd
}

func newConfirmCommand(open opener) *cobra.Command {
	var (
		rows []int
		all  bool
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "confirm <employee-id>",
		Short: "Confirm pending records during the approval window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(rows) == 0 && !all {
				return fmt.Errorf("--rows or --all is required")
			}

			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			wf := a.newWorkflow()
			if err := wf.Search(ctx, args[0]); err != nil {
				return errors.New(client.UserMessage(err))
			}

			snap := wf.Snapshot()
			printSnapshot(cmd.OutOrStdout(), snap)
			if err := requireSelectable(snap); err != nil {
				return err
			}

			if all {
				if err := wf.SelectAll(); err != nil {
					return err
				}
			} else {
				for _, r := range rows {
					if err := wf.Toggle(models.RowRef(r)); err != nil {
						return fmt.Errorf("row %d: %w", r, err)
					}
				}
			}

			selected := wf.Selected()
			acknowledged := yes || askYesNo(cmd.InOrStdin(), cmd.OutOrStdout(),
				fmt.Sprintf("Confirm %d record(s)? I reviewed them and they are correct [y/N] ", len(selected)))

			wf.OnStateChange(func(s workflow.State) {
				if s == workflow.StateConfirming {
					fmt.Fprintf(cmd.ErrOrStderr(), "sending %d record(s)...\n", len(selected))
				}
			})

			if _, err := wf.Confirm(ctx, acknowledged); err != nil {
				return errors.New(client.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), wf.Snapshot().Message)
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&rows, "rows", nil, "Row numbers to confirm (comma separated)")
	cmd.Flags().BoolVar(&all, "all", false, "Confirm every pending record")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Acknowledge without prompting")
	return cmd
}

func newHistoryCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the latest submissions made from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.service.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no submissions yet")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RECORDED\tDATE\tEMPLOYEE\tSHIFT\tIN\tOUT\tENGINEER")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.RecordedAt.Local().Format("2006-01-02 15:04"), e.Date, e.EmployeeName,
					e.ShiftLabel, e.TimeIn, e.TimeOut, e.DutyEngineer)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the submissions listed by history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	})
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "overtime-agent v%s\n", appVersion)
		},
	}
}

func printValidation(w io.Writer, res validation.Result) {
	if res.Valid {
		fmt.Fprintf(w, "valid: %.2f h worked, %.2f h overtime\n", res.TotalHours, res.OvertimeHours)
		return
	}
	fmt.Fprintf(w, "invalid: %s\n", res.Reason)
}

func printSnapshot(w io.Writer, snap workflow.Snapshot) {
	if snap.Employee != nil {
		fmt.Fprintf(w, "%s  %s\n", snap.EmployeeID, snap.Employee.FullName)
	}
	fmt.Fprintln(w, snap.Message)
	if len(snap.Records) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tDATE\tSHIFT\tIN\tOUT\tHOURS\tENGINEER\tSTATUS")
	for _, r := range snap.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			r.RowRef, r.Date, r.ShiftLabel, r.TimeIn, r.TimeOut, float64(r.TotalHours), r.DutyEngineer, r.StatusText())
	}
	fmt.Fprintf(tw, "\t\t\t\tTOTAL\t%.2f\t\t\n", models.TotalHours(snap.Records))
	tw.Flush()
}

// requireSelectable explains why nothing can be confirmed from snap
func requireSelectable(snap workflow.Snapshot) error {
	switch snap.State {
	case workflow.StatePendingReady:
		return nil
	case workflow.StateViewOnlyReady:
		return workflow.ErrOutsideWindow
	default:
		return workflow.ErrNotReady
	}
}

func askYesNo(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true
	default:
		return false
	}
}
