package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/taskdeck/internal/profile"
	"github.com/hrygo/taskdeck/store"
	"github.com/hrygo/taskdeck/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	prof := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   dir,
		DSN:    filepath.Join(dir, "taskdeck_test.db"),
	}
	driver, err := sqlite.NewDB(prof)
	require.NoError(t, err)

	s := store.New(driver, prof)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func createTestUser(t *testing.T, s *store.Store, email string) *store.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), &store.User{
		Email:        email,
		Nickname:     "tester",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	})
	require.NoError(t, err)
	return user
}

func TestCreateTaskValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createTestUser(t, s, "alice@example.com")

	t.Run("empty title is rejected before persistence", func(t *testing.T) {
		_, err := s.CreateTask(ctx, &store.Task{CreatorID: user.ID, Title: "   "})
		require.Error(t, err)

		tasks, err := s.ListTasks(ctx, &store.FindTask{CreatorID: &user.ID})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("oversized title is rejected", func(t *testing.T) {
		long := make([]byte, 256)
		for i := range long {
			long[i] = 'a'
		}
		_, err := s.CreateTask(ctx, &store.Task{CreatorID: user.ID, Title: string(long)})
		require.Error(t, err)
	})

	t.Run("valid task gets uid and timestamps", func(t *testing.T) {
		task, err := s.CreateTask(ctx, &store.Task{
			CreatorID:   user.ID,
			Title:       "Buy milk",
			Description: "2 liters",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, task.UID)
		assert.NotZero(t, task.ID)
		assert.NotZero(t, task.CreatedTs)
		assert.Equal(t, task.CreatedTs, task.UpdatedTs)
		assert.False(t, task.Completed)
	})
}

func TestListTasksByFilterIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	mk := func(creator int32, title string, completed bool) {
		task, err := s.CreateTask(ctx, &store.Task{CreatorID: creator, Title: title})
		require.NoError(t, err)
		if completed {
			_, err = s.UpdateTask(ctx, &store.UpdateTask{
				UID:       task.UID,
				CreatorID: creator,
				Completed: &completed,
			})
			require.NoError(t, err)
		}
	}
	mk(alice.ID, "alice pending", false)
	mk(alice.ID, "alice done", true)
	mk(bob.ID, "bob done", true)

	t.Run("completed filter returns only owner's completed tasks", func(t *testing.T) {
		tasks, err := s.ListTasksByFilter(ctx, alice.ID, store.TaskFilterCompleted)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "alice done", tasks[0].Title)
		assert.True(t, tasks[0].Completed)
		assert.Equal(t, alice.ID, tasks[0].CreatorID)
	})

	t.Run("incomplete filter", func(t *testing.T) {
		tasks, err := s.ListTasksByFilter(ctx, alice.ID, store.TaskFilterIncomplete)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "alice pending", tasks[0].Title)
	})

	t.Run("all filter never leaks foreign tasks", func(t *testing.T) {
		tasks, err := s.ListTasksByFilter(ctx, alice.ID, store.TaskFilterAll)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.Equal(t, alice.ID, task.CreatorID)
		}
	})

	t.Run("unknown filter is rejected", func(t *testing.T) {
		_, err := s.ListTasksByFilter(ctx, alice.ID, "done")
		require.Error(t, err)
	})
}

func TestToggleTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createTestUser(t, s, "alice@example.com")

	task, err := s.CreateTask(ctx, &store.Task{CreatorID: user.ID, Title: "flip me"})
	require.NoError(t, err)

	t.Run("toggling twice restores the original state", func(t *testing.T) {
		toggled, err := s.ToggleTask(ctx, user.ID, task.UID)
		require.NoError(t, err)
		assert.True(t, toggled.Completed)

		restored, err := s.ToggleTask(ctx, user.ID, task.UID)
		require.NoError(t, err)
		assert.False(t, restored.Completed)
	})

	t.Run("foreign user cannot toggle", func(t *testing.T) {
		bob := createTestUser(t, s, "bob@example.com")
		_, err := s.ToggleTask(ctx, bob.ID, task.UID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTaskOwnershipFailsClosed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	task, err := s.CreateTask(ctx, &store.Task{CreatorID: alice.ID, Title: "private"})
	require.NoError(t, err)

	t.Run("foreign get returns nothing", func(t *testing.T) {
		got, err := s.GetTask(ctx, &store.FindTask{UID: &task.UID, CreatorID: &bob.ID})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("foreign update is not found", func(t *testing.T) {
		title := "stolen"
		_, err := s.UpdateTask(ctx, &store.UpdateTask{UID: task.UID, CreatorID: bob.ID, Title: &title})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("foreign delete is not found", func(t *testing.T) {
		err := s.DeleteTask(ctx, &store.DeleteTask{UID: task.UID, CreatorID: bob.ID})
		require.ErrorIs(t, err, store.ErrNotFound)

		got, err := s.GetTask(ctx, &store.FindTask{UID: &task.UID, CreatorID: &alice.ID})
		require.NoError(t, err)
		require.NotNil(t, got)
	})
}

func TestConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createTestUser(t, s, "alice@example.com")

	t.Run("blank title falls back to default", func(t *testing.T) {
		conversation, err := s.CreateConversation(ctx, &store.Conversation{CreatorID: user.ID})
		require.NoError(t, err)
		assert.Equal(t, store.DefaultConversationTitle, conversation.Title)
		assert.NotEmpty(t, conversation.UID)
	})

	t.Run("rename touches updated timestamp", func(t *testing.T) {
		conversation, err := s.CreateConversation(ctx, &store.Conversation{CreatorID: user.ID, Title: "old"})
		require.NoError(t, err)

		title := "new title"
		updated, err := s.UpdateConversation(ctx, &store.UpdateConversation{
			UID:       conversation.UID,
			CreatorID: user.ID,
			Title:     &title,
		})
		require.NoError(t, err)
		assert.Equal(t, "new title", updated.Title)
		assert.GreaterOrEqual(t, updated.UpdatedTs, conversation.UpdatedTs)
	})

	t.Run("count is scoped by owner", func(t *testing.T) {
		bob := createTestUser(t, s, "bob@example.com")
		count, err := s.CountConversations(ctx, &store.FindConversation{CreatorID: &bob.ID})
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestDeleteConversationCascadesToMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createTestUser(t, s, "alice@example.com")

	conversation, err := s.CreateConversation(ctx, &store.Conversation{CreatorID: user.ID, Title: "doomed"})
	require.NoError(t, err)

	for _, content := range []string{"hello", "hi there"} {
		role := store.MessageRoleUser
		if content == "hi there" {
			role = store.MessageRoleAssistant
		}
		_, err := s.CreateMessage(ctx, &store.Message{
			ConversationID: conversation.ID,
			CreatorID:      user.ID,
			Role:           role,
			Content:        content,
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteConversation(ctx, &store.DeleteConversation{
		UID:       conversation.UID,
		CreatorID: user.ID,
	}))

	messages, err := s.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
	require.NoError(t, err)
	assert.Empty(t, messages, "no orphan messages may remain")

	got, err := s.GetConversation(ctx, &store.FindConversation{UID: &conversation.UID})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMessageValidationAndOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	user := createTestUser(t, s, "alice@example.com")

	conversation, err := s.CreateConversation(ctx, &store.Conversation{CreatorID: user.ID, Title: "chat"})
	require.NoError(t, err)

	t.Run("empty content is rejected", func(t *testing.T) {
		_, err := s.CreateMessage(ctx, &store.Message{
			ConversationID: conversation.ID,
			CreatorID:      user.ID,
			Role:           store.MessageRoleUser,
			Content:        "  ",
		})
		require.Error(t, err)
	})

	t.Run("invalid role is rejected", func(t *testing.T) {
		_, err := s.CreateMessage(ctx, &store.Message{
			ConversationID: conversation.ID,
			CreatorID:      user.ID,
			Role:           "system",
			Content:        "nope",
		})
		require.Error(t, err)
	})

	t.Run("messages come back in ascending creation order", func(t *testing.T) {
		for _, content := range []string{"first", "second", "third"} {
			_, err := s.CreateMessage(ctx, &store.Message{
				ConversationID: conversation.ID,
				CreatorID:      user.ID,
				Role:           store.MessageRoleUser,
				Content:        content,
			})
			require.NoError(t, err)
		}
		messages, err := s.ListMessages(ctx, &store.FindMessage{
			ConversationID: &conversation.ID,
			CreatorID:      &user.ID,
		})
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, "first", messages[0].Content)
		assert.Equal(t, "second", messages[1].Content)
		assert.Equal(t, "third", messages[2].Content)
	})
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateUser(ctx, &store.User{Email: "not-an-email", PasswordHash: "x"})
	require.Error(t, err)

	_, err = s.CreateUser(ctx, &store.User{Email: "ok@example.com"})
	require.Error(t, err, "password hash required")
}
