package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/application/services"
	"github.com/taskmaster/console/internal/domain/entities"
)

// NewInboxCommand creates the inbox command with its subcommands
func NewInboxCommand(flags *globalFlags) *cobra.Command {
	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Assignment offers and their answers",
		Long:  "Employees see the task assignments offered to them; managers see the answers to the offers they sent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInboxList(cmd, flags)
		},
	}

	inboxCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInboxList(cmd, flags)
		},
	})

	inboxCmd.AddCommand(&cobra.Command{
		Use:   "accept <notification-id>",
		Short: "Accept an assignment offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswer(cmd, flags, args[0], true)
		},
	})

	inboxCmd.AddCommand(&cobra.Command{
		Use:   "refuse <notification-id>",
		Short: "Refuse an assignment offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswer(cmd, flags, args[0], false)
		},
	})

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print notifications as they change until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := cmd.Flags().GetDuration("interval")
			if err != nil {
				return err
			}
			return runInboxWatch(cmd, flags, interval)
		},
	}
	watchCmd.Flags().Duration("interval", 0, "Polling interval (defaults to NOTIFICATIONS_POLL_INTERVAL)")
	inboxCmd.AddCommand(watchCmd)

	return inboxCmd
}

// notificationView reads the list a role watches: pending offers for an
// employee, received answers for a manager, everything addressed to the
// user otherwise.
func notificationView(ctx context.Context, ws *services.Workspace, role entities.Role) query.State[[]entities.Notification] {
	if role.IsManager() {
		return ws.Notifications.Received(ctx)
	}
	return ws.Notifications.Inbox(ctx, role)
}

func printNotification(w io.Writer, n *entities.Notification) {
	if n.Response {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, n.Status, n.EmployeeName, n.TaskLabel(), n.ProjectLabel())
		return
	}
	what := "task"
	if n.IsProjectInvite() {
		what = "project invite"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, n.Status, what, n.TaskLabel(), n.ProjectLabel())
}

func runInboxList(cmd *cobra.Command, flags *globalFlags) error {
	app, err := newCLIApp(flags)
	if err != nil {
		return err
	}
	defer app.close()

	state, err := app.requireUser(cmd.Context())
	if err != nil {
		return err
	}

	view := notificationView(cmd.Context(), app.ws, state.Role)
	if view.Err != nil {
		return describe(view.Err)
	}
	if len(view.Data) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notifications")
		return nil
	}

	tw := newTable(cmd.OutOrStdout())
	for i := range view.Data {
		printNotification(tw, &view.Data[i])
	}
	return tw.Flush()
}

func runAnswer(cmd *cobra.Command, flags *globalFlags, id string, accept bool) error {
	app, err := newCLIApp(flags)
	if err != nil {
		return err
	}
	defer app.close()

	if _, err := app.requireUser(cmd.Context()); err != nil {
		return err
	}

	verb := "Refused"
	answer := app.ws.Notifications.Refuse
	if accept {
		verb = "Accepted"
		answer = app.ws.Notifications.Accept
	}
	if err := answer(cmd.Context(), id); err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, id)
	return nil
}

func runInboxWatch(cmd *cobra.Command, flags *globalFlags, interval time.Duration) error {
	app, err := newCLIApp(flags)
	if err != nil {
		return err
	}
	defer app.close()

	state, err := app.requireUser(cmd.Context())
	if err != nil {
		return err
	}
	// Unlike the web dashboard, the pending inbox also polls on a timer: the
	// refetch signal only fires for changes made in this process, and a
	// watching terminal makes none.
	if interval <= 0 {
		interval = app.cfg.Notifications.PollInterval
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	trigger, unsubscribe := app.ws.Signals.Channel(services.EventNotificationsChanged)
	defer unsubscribe()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching notifications every %s, Ctrl-C to stop\n", interval)

	seen := make(map[string]entities.NotificationStatus)
	poller := services.NewPoller(query.RealClock(), interval, trigger, app.logger)
	err = poller.Run(ctx, func(ctx context.Context) error {
		app.ws.Notifications.Refetch()
		view := notificationView(ctx, app.ws, state.Role)
		if view.Err != nil {
			return view.Err
		}
		tw := newTable(out)
		for i := range view.Data {
			n := &view.Data[i]
			if seen[n.ID] == n.Status {
				continue
			}
			seen[n.ID] = n.Status
			printNotification(tw, n)
		}
		return tw.Flush()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
