package store

// TaskFilter selects tasks by completion status.
type TaskFilter string

const (
	TaskFilterAll        TaskFilter = "all"
	TaskFilterCompleted  TaskFilter = "completed"
	TaskFilterIncomplete TaskFilter = "incomplete"
)

// Task is a user's todo item. Every access path filters by CreatorID.
type Task struct {
	ID          int32
	UID         string
	CreatorID   int32
	Title       string
	Description string
	Completed   bool
	CreatedTs   int64
	UpdatedTs   int64
}

type FindTask struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	Completed *bool
	Limit     *int
	Offset    *int
}

type UpdateTask struct {
	UID         string
	CreatorID   int32
	Title       *string
	Description *string
	Completed   *bool
	UpdatedTs   *int64
}

type DeleteTask struct {
	UID       string
	CreatorID int32
}
