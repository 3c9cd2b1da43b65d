package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store database drivers.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)

	CreateTask(ctx context.Context, create *Task) (*Task, error)
	ListTasks(ctx context.Context, find *FindTask) ([]*Task, error)
	UpdateTask(ctx context.Context, update *UpdateTask) (*Task, error)
	DeleteTask(ctx context.Context, delete *DeleteTask) error

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	CountConversations(ctx context.Context, find *FindConversation) (int, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
}
