package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	"campusconnect/internal/client"
	"campusconnect/internal/model"
	"campusconnect/internal/notify"
	"campusconnect/internal/reconciler"
)

func (o *rootOptions) client() (*client.Client, error) {
	return client.New(o.serverURL, filepath.Join(o.stateDir, "session.json"))
}

func (o *rootOptions) reconciler(c *client.Client, pub notify.Publisher) *reconciler.Reconciler {
	log := zlog.Logger
	store := reconciler.NewFileStore(filepath.Join(o.stateDir, "registrations.json"))
	return reconciler.New(client.Authority{C: c}, store, pub, &log)
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <srn>",
		Short: "Sign in as a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			p, err := c.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", p.Name, p.SRN)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAdminLoginCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "admin-login <adminId>",
		Short: "Sign in as an admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			p, err := c.AdminLogin(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as admin %s\n", p.AdminID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoAmICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			p, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			switch {
			case p == nil:
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
			case p.IsAdmin():
				fmt.Fprintf(cmd.OutOrStdout(), "%s (admin %s)\n", p.Name, p.AdminID)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.Name, p.SRN)
			}
			return nil
		},
	}
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Browse the event catalogue",
	}

	var grouped bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List upcoming and past events by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if grouped {
				groups, err := c.GroupedEvents(cmd.Context())
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Fprintf(cmd.OutOrStdout(), "== %s ==\n", g.Category)
					printEvents(cmd.OutOrStdout(), g.Events)
				}
				return nil
			}
			events, err := c.Events(cmd.Context())
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	list.Flags().BoolVar(&grouped, "grouped", false, "group by category")

	show := &cobra.Command{
		Use:   "show <id|title>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			e, err := c.Event(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n  id:       %s\n  club:     %s\n  category: %s\n  date:     %s\n",
				e.Title, e.ID.Hex(), e.Club, e.Category, e.Date.Format(time.DateOnly))
			if e.Deadline != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  deadline: %s\n", e.Deadline.Format(time.DateOnly))
			}
			if link := e.Link(); link != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  register: %s\n", link)
			}
			if e.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", e.Description)
			}
			return nil
		},
	}

	cmd.AddCommand(
		list,
		show,
		newEventCreateCmd(opts),
		newEventUpdateCmd(opts),
		newEventDeleteCmd(opts),
		newEventUploadCmd(opts),
	)
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var date, club string
	cmd := &cobra.Command{
		Use:   "register <id|title>",
		Short: "Register for an event, keeping it offline if the server cannot take it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := opts.client()
			if err != nil {
				return err
			}

			snapshot := reconciler.Entry{Title: args[0], Date: date, Club: club}
			if e, err := c.Event(ctx, args[0]); err == nil {
				snapshot = reconciler.EntryFromEvent(*e)
			} else if !client.IsStatus(err, http.StatusNotFound) {
				zlog.Logger.Warn().Err(err).Msg("event lookup failed")
			}

			bus := notify.NewBus()
			unsubscribe := bus.Subscribe(func(m notify.Message) {
				zlog.Logger.Debug().Str("kind", string(m.Kind)).Str("event_id", m.EventID).Msg("notification")
			})
			defer unsubscribe()

			r := opts.reconciler(c, bus)
			if err := r.Sync(ctx); err != nil {
				zlog.Logger.Warn().Err(err).Msg("could not load existing registrations")
			}

			out, err := r.RegisterIntent(ctx, snapshot)
			if err != nil {
				return fmt.Errorf("could not save registration locally: %w", err)
			}
			switch out {
			case reconciler.OutcomeStoredLocally:
				fmt.Fprintf(cmd.OutOrStdout(), "%s: saved locally, the server did not confirm\n", snapshot.Title)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", snapshot.Title, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "event date, for events not on the server yet")
	cmd.Flags().StringVar(&club, "club", "", "organizing club, for events not on the server yet")
	return cmd
}

func newMineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List my registrations, including ones saved offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			listing, err := opts.reconciler(c, nil).ListMine(cmd.Context())
			if err != nil {
				return err
			}
			if listing.Partial {
				cmd.PrintErrln("server unavailable, showing offline registrations only")
			}
			if len(listing.Events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no registrations yet")
				return nil
			}
			printEntries(cmd.OutOrStdout(), listing.Events)
			return nil
		},
	}
}

func printEvents(w io.Writer, events []model.Event) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTITLE\tCLUB\tCATEGORY\tID")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date.Format(time.DateOnly), e.Title, e.Club, e.Category, e.ID.Hex())
	}
	_ = tw.Flush()
}

func printEntries(w io.Writer, entries []reconciler.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTITLE\tCLUB\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortDate(e.Date), e.Title, e.Club, e.ID)
	}
	_ = tw.Flush()
}

func shortDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(time.DateOnly)
	}
	return s
}
