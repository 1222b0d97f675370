package admin

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/service"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
)

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Creates the default administrator if no account exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := services.Accounts.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created administrator %s\n", service.BootstrapAdmin)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "accounts exist, nothing to do")
			}
			return nil
		},
	}
	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Removes every account and record and creates the default administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("reset deletes all data, confirm with --yes")
			}
			if err := services.Accounts.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reset successfully")
			return nil
		},
	}
	usersCmd = &cobra.Command{
		Use:   "users",
		Short: "Lists all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := services.Users.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), profiles)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CALLSIGN\tNAME\tROLE\tSTATUS\tEMAIL\tCREATED")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Callsign, p.Name, p.Role, p.Status, p.Email, p.CreatedAt.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	createUserCmd = &cobra.Command{
		Use:   "create-user [callsign] [name] [secret]",
		Short: "Creates an account with the given role",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleName, _ := cmd.Flags().GetString("role")
			role, err := model.ParseRole(roleName)
			if err != nil {
				return err
			}

			var p *model.Profile
			switch role {
			case model.RoleAdmin:
				p, err = services.Accounts.CreateAdmin(cmd.Context(), args[0], args[1], args[2])
			case model.RoleStaff:
				p, err = services.Accounts.CreateStaff(cmd.Context(), args[0], args[1], args[2])
			default:
				email, _ := cmd.Flags().GetString("email")
				p, err = services.Accounts.CreateApplicant(cmd.Context(), service.ProfileInput{
					Callsign: args[0],
					Name:     args[1],
					Secret:   args[2],
					Email:    email,
				})
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	setRoleCmd = &cobra.Command{
		Use:   "set-role [callsign] [role]",
		Short: "Changes the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := model.ParseRole(args[1])
			if err != nil {
				return err
			}
			p, err := services.Users.UpdateRole(cmd.Context(), args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", p.Callsign, p.Role)
			return nil
		},
	}
	reportCmd = &cobra.Command{
		Use:   "report [callsign]",
		Short: "Prints the credit report of one applicant, or of all applicants",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				r, err := services.Credit.Report(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			}

			reports, err := services.Credit.AllReports(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), reports)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CALLSIGN\tNAME\tRELIABILITY\tACTIVITY\tSUCCESS\tOVERALL")
			for _, r := range reports {
				s := r.Summary
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", r.User.Callsign, r.User.Name, s.Reliability, s.ActivityLevel, s.SuccessRate, s.OverallScore)
			}
			return w.Flush()
		},
	}
	violationsCmd = &cobra.Command{
		Use:   "violations [callsign]",
		Short: "Lists the violations of one account, or of all accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				list []*model.Violation
				err  error
			)
			if len(args) == 1 {
				list, err = services.Violations.GetByOwner(cmd.Context(), args[0])
			} else {
				list, err = services.Violations.GetAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCALLSIGN\tSEVERITY\tTITLE\tREPORTER\tDATE")
			for _, v := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, v.Owner(), v.Severity, v.Title, v.ReporterCallsign, v.Date.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	addViolationCmd = &cobra.Command{
		Use:   "add-violation [callsign] [severity] [title]",
		Short: "Files a violation against an account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			severity, err := model.ParseSeverity(args[1])
			if err != nil {
				return err
			}
			reporter, _ := cmd.Flags().GetString("reporter")
			description, _ := cmd.Flags().GetString("description")
			v, err := services.Violations.Add(cmd.Context(), args[0], service.ViolationInput{
				Title:       args[2],
				Description: description,
				Severity:    severity,
			}, reporter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	deleteViolationCmd = &cobra.Command{
		Use:   "delete-violation [id]",
		Short: "Removes a violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("reporter")
			if err := services.Violations.Delete(cmd.Context(), args[0], actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted violation %s\n", args[0])
			return nil
		},
	}
	preloadCmd = &cobra.Command{
		Use:   "preload [callsign]",
		Short: "Loads all listings, or those of one account, and prints timings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			var err error
			if len(args) == 1 {
				err = services.Preloader.WarmOwner(cmd.Context(), args[0])
			} else {
				err = services.Preloader.WarmAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "preloaded in %s\n", time.Since(start))
			return writeStats(cmd.OutOrStdout())
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Counts accounts and records and prints backend and cache metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owners, err := docStore.ListOwners(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "owners\t%d\n", len(owners))
			for _, kind := range append([]model.Kind{model.KindProfile}, model.RecordKinds...) {
				docs, err := docStore.ListAllEntities(cmd.Context(), kind)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\n", kind, len(docs))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return writeStats(cmd.OutOrStdout())
		},
	}
	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuilds the owner index by scanning the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := docStore.RebuildIndex(cmd.Context()); err != nil {
				return err
			}
			owners, err := docStore.ListOwners(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "index rebuilt, %d owners\n", len(owners))
			return nil
		},
	}
)

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm that all data is deleted")
	usersCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	reportCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	createUserCmd.Flags().String("role", "applicant", "Role of the new account (applicant, staff, admin)")
	createUserCmd.Flags().String("email", "", "E-mail of a new applicant")
	violationsCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	addViolationCmd.Flags().String("reporter", service.BootstrapAdmin, "Callsign of the reporting staff member")
	addViolationCmd.Flags().String("description", "", "Details of the violation")
	deleteViolationCmd.Flags().String("reporter", service.BootstrapAdmin, "Callsign of the staff member removing the violation")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeStats prints the backend timers and the cache counters.
func writeStats(w io.Writer) error {
	fmt.Fprintln(w, "# backend")
	gometrics.WriteOnce(gometrics.DefaultRegistry, w)
	fmt.Fprintln(w, "# cache")
	metrics.WritePrometheus(w, false)
	return nil
}
