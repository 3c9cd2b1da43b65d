package store

import (
	"context"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/internal/profile"
	"github.com/hrygo/taskdeck/internal/util"
)

const (
	maxTaskTitleLength       = 255
	maxTaskDescriptionLength = 1000
	maxConversationTitle     = 255
)

// ErrNotFound is returned by mutations that matched no row. A row owned by
// another user is indistinguishable from an absent one by design.
var ErrNotFound = errors.New("not found")

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	if !util.ValidateEmail(create.Email) {
		return nil, errors.Errorf("invalid email %q", create.Email)
	}
	if create.PasswordHash == "" {
		return nil, errors.New("password hash required")
	}
	if create.UID == "" {
		create.UID = util.GenUUID()
	}
	now := time.Now().UTC().Unix()
	create.CreatedTs = now
	create.UpdatedTs = now
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	users, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, create *Task) (*Task, error) {
	create.Title = strings.TrimSpace(create.Title)
	if create.Title == "" {
		return nil, errors.New("task title cannot be empty")
	}
	if len(create.Title) > maxTaskTitleLength {
		return nil, errors.Errorf("task title exceeds %d characters", maxTaskTitleLength)
	}
	if len(create.Description) > maxTaskDescriptionLength {
		return nil, errors.Errorf("task description exceeds %d characters", maxTaskDescriptionLength)
	}
	if create.CreatorID == 0 {
		return nil, errors.New("task creator required")
	}
	if create.UID == "" {
		create.UID = util.GenUUID()
	}
	now := time.Now().UTC().Unix()
	create.CreatedTs = now
	create.UpdatedTs = now
	return s.driver.CreateTask(ctx, create)
}

func (s *Store) ListTasks(ctx context.Context, find *FindTask) ([]*Task, error) {
	return s.driver.ListTasks(ctx, find)
}

// ListTasksByFilter lists the owner's tasks matching a completion filter.
func (s *Store) ListTasksByFilter(ctx context.Context, creatorID int32, filter TaskFilter) ([]*Task, error) {
	find := &FindTask{CreatorID: &creatorID}
	switch filter {
	case TaskFilterCompleted:
		completed := true
		find.Completed = &completed
	case TaskFilterIncomplete:
		completed := false
		find.Completed = &completed
	case TaskFilterAll, "":
		// no completion filter
	default:
		return nil, errors.Errorf("unknown task filter %q", filter)
	}
	return s.driver.ListTasks(ctx, find)
}

func (s *Store) GetTask(ctx context.Context, find *FindTask) (*Task, error) {
	tasks, err := s.driver.ListTasks(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

func (s *Store) UpdateTask(ctx context.Context, update *UpdateTask) (*Task, error) {
	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			return nil, errors.New("task title cannot be empty")
		}
		if len(trimmed) > maxTaskTitleLength {
			return nil, errors.Errorf("task title exceeds %d characters", maxTaskTitleLength)
		}
		update.Title = &trimmed
	}
	if update.Description != nil && len(*update.Description) > maxTaskDescriptionLength {
		return nil, errors.Errorf("task description exceeds %d characters", maxTaskDescriptionLength)
	}
	now := time.Now().UTC().Unix()
	update.UpdatedTs = &now
	return s.driver.UpdateTask(ctx, update)
}

func (s *Store) DeleteTask(ctx context.Context, delete *DeleteTask) error {
	return s.driver.DeleteTask(ctx, delete)
}

// ToggleTask flips the completion flag of an owned task.
// Last write wins; there is no optimistic concurrency check.
func (s *Store) ToggleTask(ctx context.Context, creatorID int32, uid string) (*Task, error) {
	task, err := s.GetTask(ctx, &FindTask{UID: &uid, CreatorID: &creatorID})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	completed := !task.Completed
	return s.UpdateTask(ctx, &UpdateTask{
		UID:       uid,
		CreatorID: creatorID,
		Completed: &completed,
	})
}

// --- Conversations ---

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	create.Title = strings.TrimSpace(create.Title)
	if create.Title == "" {
		create.Title = DefaultConversationTitle
	}
	if len(create.Title) > maxConversationTitle {
		create.Title = create.Title[:maxConversationTitle]
	}
	if create.CreatorID == 0 {
		return nil, errors.New("conversation creator required")
	}
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	now := time.Now().UTC().Unix()
	create.CreatedTs = now
	create.UpdatedTs = now
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	conversations, err := s.driver.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return nil, nil
	}
	return conversations[0], nil
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) CountConversations(ctx context.Context, find *FindConversation) (int, error) {
	return s.driver.CountConversations(ctx, find)
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			return nil, errors.New("conversation title cannot be empty")
		}
		update.Title = &trimmed
	}
	now := time.Now().UTC().Unix()
	update.UpdatedTs = &now
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

// --- Messages ---

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if strings.TrimSpace(create.Content) == "" {
		return nil, errors.New("message content cannot be empty")
	}
	if create.Role != MessageRoleUser && create.Role != MessageRoleAssistant {
		return nil, errors.Errorf("invalid message role %q", create.Role)
	}
	if create.UID == "" {
		create.UID = util.GenUUID()
	}
	create.CreatedTs = time.Now().UTC().Unix()

	message, err := s.driver.CreateMessage(ctx, create)
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}
