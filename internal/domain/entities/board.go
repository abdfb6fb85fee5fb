package entities

var projectStatusLabels = map[ProjectStatus]string{
	ProjectStatusPlanned:    "Planifié",
	ProjectStatusInProgress: "En cours",
	ProjectStatusDone:       "Terminé",
	ProjectStatusPaused:     "En pause",
}

var taskStatusLabels = map[TaskStatus]string{
	TaskStatusTodo:       "To Do",
	TaskStatusInProgress: "In Progress",
	TaskStatusDone:       "Done",
}

func (ps ProjectStatus) Label() string {
	if l, ok := projectStatusLabels[ps]; ok {
		return l
	}
	return string(ps)
}

func (ts TaskStatus) Label() string {
	if l, ok := taskStatusLabels[ts]; ok {
		return l
	}
	return string(ts)
}

// Column is one Kanban lane.
type Column struct {
	Status TaskStatus
	Label  string
	Tasks  []Task
}

// Board is the three-lane Kanban view of a project's tasks.
type Board struct {
	Columns []Column
	Total   int
}

// BuildBoard partitions tasks into the TODO, IN_PROGRESS and DONE lanes,
// preserving input order inside each lane. A task with a status outside the
// enumeration lands in TODO so every task is in exactly one lane.
func BuildBoard(tasks []Task) Board {
	board := Board{Columns: make([]Column, len(TaskStatuses)), Total: len(tasks)}
	index := make(map[TaskStatus]int, len(TaskStatuses))
	for i, status := range TaskStatuses {
		board.Columns[i] = Column{Status: status, Label: status.Label(), Tasks: []Task{}}
		index[status] = i
	}

	for _, task := range tasks {
		i, ok := index[task.Status]
		if !ok {
			i = index[TaskStatusTodo]
		}
		board.Columns[i].Tasks = append(board.Columns[i].Tasks, task)
	}
	return board
}

// Column returns the lane for a status.
func (b Board) Column(status TaskStatus) Column {
	for _, c := range b.Columns {
		if c.Status == status {
			return c
		}
	}
	return Column{Status: status, Label: status.Label()}
}

// CanUpdateStatus gates the move/edit affordance: managers and admins may
// move any task, everyone else only the tasks assigned to them. UI only; the
// backend decides.
func CanUpdateStatus(user *User, task *Task) bool {
	if user == nil || task == nil {
		return false
	}
	if user.Role.IsManager() {
		return true
	}
	return task.IsAssignedTo(user.ID)
}
