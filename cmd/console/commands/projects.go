package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskmaster/console/internal/domain/entities"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func dateCell(d *entities.Date) string {
	if d == nil || d.IsZero() {
		return "-"
	}
	return d.Format("02/01/2006")
}

// NewProjectsCommand creates the projects command
func NewProjectsCommand(flags *globalFlags) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			search, _ := cmd.Flags().GetString("search")
			if status == "" {
				status = entities.FilterAll
			}

			app, err := newCLIApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			if _, err := app.requireUser(cmd.Context()); err != nil {
				return err
			}

			state := app.ws.Projects.List(cmd.Context())
			if state.Err != nil {
				return describe(state.Err)
			}

			out := cmd.OutOrStdout()
			var tabs []string
			for _, b := range entities.ProjectBuckets(state.Data, search, strings.ToUpper(status)) {
				tab := fmt.Sprintf("%s (%d)", b.Label, b.Count)
				if b.Active {
					tab = "[" + tab + "]"
				}
				tabs = append(tabs, tab)
			}
			fmt.Fprintln(out, strings.Join(tabs, "  "))

			tw := newTable(out)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTART\tEND\tMEMBERS")
			for _, p := range entities.FilterProjects(state.Data, strings.ToUpper(status), search) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
					p.ID, p.Name, p.Status.Label(), dateCell(p.StartDate), dateCell(p.EndDate), len(p.Members))
			}
			return tw.Flush()
		},
	}

	projectsCmd.Flags().String("status", "", "Only show one status bucket (PLANNED, IN_PROGRESS, DONE, PAUSED)")
	projectsCmd.Flags().String("search", "", "Filter by name or description")
	return projectsCmd
}

// NewBoardCommand creates the board command
func NewBoardCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "board <project-id>",
		Short: "Show a project's Kanban board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			state, err := app.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			detail, err := app.ws.Projects.Detail(cmd.Context(), args[0])
			if detail.Project.Data == nil {
				if err == nil {
					err = fmt.Errorf("project %s not found", args[0])
				}
				return describe(err)
			}
			if err != nil {
				return describe(err)
			}

			project := detail.Project.Data
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  [%s]\n", project.Name, project.Status.Label())
			if project.Description != "" {
				fmt.Fprintln(out, project.Description)
			}

			board := detail.Board()
			for _, col := range board.Columns {
				fmt.Fprintf(out, "\n== %s (%d) ==\n", col.Label, len(col.Tasks))
				tw := newTable(out)
				for i := range col.Tasks {
					t := &col.Tasks[i]
					mark := " "
					if entities.CanUpdateStatus(state.User, t) {
						mark = "*"
					}
					fmt.Fprintf(tw, "%s %s\t%s\t%s\tdue %s\n", mark, t.ID, t.Title, t.Priority, dateCell(t.DueDate))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "\n%d task(s); * marks the ones you can move\n", board.Total)
			return nil
		},
	}
}

// NewTasksCommand creates the tasks command with its subcommands
func NewTasksCommand(flags *globalFlags) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}

	tasksCmd.AddCommand(&cobra.Command{
		Use:   "advance <project-id> <task-id>",
		Short: "Move a task to the next column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, taskID := args[0], args[1]

			app, err := newCLIApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			state, err := app.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			tasks := app.ws.Tasks.List(cmd.Context(), projectID)
			if tasks.Err != nil {
				return describe(tasks.Err)
			}
			for _, task := range tasks.Data {
				if task.ID != taskID {
					continue
				}
				if !entities.CanUpdateStatus(state.User, &task) {
					return fmt.Errorf("you cannot move task %s", taskID)
				}
				if task.Status == entities.TaskStatusDone {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already done\n", taskID)
					return nil
				}
				updated, err := app.ws.Tasks.Advance(cmd.Context(), task)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", taskID, task.Status.Label(), updated.Status.Label())
				return nil
			}
			return fmt.Errorf("task %s not found in project %s", taskID, projectID)
		},
	})

	return tasksCmd
}

// NewUsersCommand creates the users command
func NewUsersCommand(flags *globalFlags) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List user accounts (managers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			search, _ := cmd.Flags().GetString("search")
			if role == "" {
				role = entities.FilterAll
			}

			app, err := newCLIApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			state, err := app.requireUser(cmd.Context())
			if err != nil {
				return err
			}
			if !state.User.IsManager() {
				return fmt.Errorf("only administrators and project managers can list users")
			}

			users := app.ws.Users.List(cmd.Context())
			if users.Err != nil {
				return describe(users.Err)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
			for _, u := range entities.FilterUsers(users.Data, strings.ToUpper(role), search) {
				active := "yes"
				if !u.IsActive {
					active = "no"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role.Label(), active)
			}
			return tw.Flush()
		},
	}

	usersCmd.Flags().String("role", "", "Only show one role (ADMIN, PROJECT_MANAGER, EMPLOYEE, CLIENT)")
	usersCmd.Flags().String("search", "", "Filter by name or email")
	return usersCmd
}
