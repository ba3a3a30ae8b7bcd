package history

import (
	"context"
	"testing"
	"time"

	"github.com/alisoliman/realtime-api/internal/conversation"
	"github.com/alisoliman/realtime-api/internal/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestHistoryDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func testRecord(title string, startedAt time.Time) conversation.Record {
	return conversation.Record{
		Title:     title,
		StartedAt: startedAt,
		Duration:  95 * time.Second,
		Entries: []conversation.Entry{
			{ItemID: "item_u1", Role: conversation.RoleUser, Content: "What time is it?", CreatedAt: startedAt},
			{ItemID: "item_a1", Role: conversation.RoleAssistant, Content: "It is noon.", CreatedAt: startedAt.Add(2 * time.Second)},
		},
	}
}

func TestStore_Migrate(t *testing.T) {
	db := setupTestHistoryDB(t)
	store := NewStore(db)

	if err := store.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table'").Scan(&tables)
	want := map[string]bool{"conversations": false, "messages": false}
	for _, table := range tables {
		if _, ok := want[table]; ok {
			want[table] = true
		}
	}
	for table, found := range want {
		if !found {
			t.Errorf("%s table should exist after migration", table)
		}
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	db := setupTestHistoryDB(t)
	store := NewStore(db)
	store.Migrate()
	ctx := context.Background()

	startedAt := time.Now().Add(-2 * time.Minute).Truncate(time.Second)
	if err := store.Save(ctx, testRecord("What time is it?", startedAt)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	convs, err := store.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	if convs[0].Title != "What time is it?" {
		t.Errorf("unexpected title %q", convs[0].Title)
	}
	if convs[0].DurationSeconds != 95 {
		t.Errorf("unexpected duration %d", convs[0].DurationSeconds)
	}
	if len(convs[0].Messages) != 0 {
		t.Error("List should not load messages")
	}

	got, err := store.Get(ctx, convs[0].ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[0].Content != "What time is it?" {
		t.Errorf("unexpected first message: %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "assistant" {
		t.Errorf("unexpected second message: %+v", got.Messages[1])
	}
	if got.Messages[0].Position != 0 || got.Messages[1].Position != 1 {
		t.Error("messages should keep their transcript order")
	}
}

func TestStore_GetNotFound(t *testing.T) {
	db := setupTestHistoryDB(t)
	store := NewStore(db)
	store.Migrate()

	_, err := store.Get(context.Background(), "conv_missing")
	if err != shared.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	db := setupTestHistoryDB(t)
	store := NewStore(db)
	store.Migrate()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	store.Save(ctx, testRecord("oldest", base))
	store.Save(ctx, testRecord("middle", base.Add(10*time.Minute)))
	store.Save(ctx, testRecord("newest", base.Add(20*time.Minute)))

	convs, err := store.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(convs))
	}
	if convs[0].Title != "newest" || convs[1].Title != "middle" {
		t.Errorf("expected newest first, got %q then %q", convs[0].Title, convs[1].Title)
	}

	rest, err := store.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List with offset failed: %v", err)
	}
	if len(rest) != 1 || rest[0].Title != "oldest" {
		t.Errorf("expected oldest on second page, got %+v", rest)
	}
}

func TestStore_Delete(t *testing.T) {
	db := setupTestHistoryDB(t)
	store := NewStore(db)
	store.Migrate()
	ctx := context.Background()

	store.Save(ctx, testRecord("to delete", time.Now()))
	convs, _ := store.List(ctx, 10, 0)
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}

	if err := store.Delete(ctx, convs[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, convs[0].ID); err != shared.ErrNotFound {
		t.Errorf("conversation should be gone, got %v", err)
	}
	var count int64
	db.Model(&Message{}).Where("conversation_id = ?", convs[0].ID).Count(&count)
	if count != 0 {
		t.Errorf("messages should be deleted with the conversation, got %d", count)
	}

	if err := store.Delete(ctx, "conv_missing"); err != shared.ErrNotFound {
		t.Errorf("deleting missing conversation should return ErrNotFound, got %v", err)
	}
}
