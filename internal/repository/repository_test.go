package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portfolio-rag/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Upsert", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `documents_metadata`.*ON DUPLICATE KEY UPDATE").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := NewDocumentRepository(db).Upsert(ctx, &model.Document{ID: "d1", Title: "CV", Type: model.DocumentTypeCV, CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Get Missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `documents_metadata` WHERE id = \\?").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		doc, err := NewDocumentRepository(db).Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("List Newest First", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{"id", "title", "type", "source", "chunk_count", "created_at", "updated_at"}).
			AddRow("d2", "Blog", "blog", "", 3, now.Add(time.Hour), now.Add(time.Hour)).
			AddRow("d1", "CV", "cv", "direct-input", 5, now, now)
		mock.ExpectQuery("SELECT \\* FROM `documents_metadata` ORDER BY created_at DESC").WillReturnRows(rows)

		list, err := NewDocumentRepository(db).List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "d2", list[0].ID)
		assert.Equal(t, 5, list[1].ChunkCount)
		assert.Equal(t, model.DocumentTypeCV, list[1].Type)
	})

	t.Run("Update Chunk Count", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `documents_metadata` SET").
			WithArgs(7, now, "d1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewDocumentRepository(db).UpdateChunkCount(ctx, "d1", 7, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestChunkRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create Batch", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `documents`").WillReturnResult(sqlmock.NewResult(1, 2))
		mock.ExpectCommit()

		chunks := []model.Chunk{
			model.NewChunk(model.EmbeddedChunk{Content: "a", Embedding: []float32{1}, Metadata: model.ChunkMetadata{DocumentID: "d1"}}),
			model.NewChunk(model.EmbeddedChunk{Content: "b", Embedding: []float32{2}, Metadata: model.ChunkMetadata{DocumentID: "d1", ChunkIndex: 1}}),
		}
		require.NoError(t, NewChunkRepository(db).CreateBatch(ctx, chunks))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Create Empty Batch Is Noop", func(t *testing.T) {
		db, mock := newMockDB(t)
		require.NoError(t, NewChunkRepository(db).CreateBatch(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete By Document", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM `documents` WHERE document_id = \\?").
			WithArgs("d1").
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectCommit()

		require.NoError(t, NewChunkRepository(db).DeleteByDocumentID(ctx, "d1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMessageRepository_ListChronological(t *testing.T) {
	db, mock := newMockDB(t)
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "created_at"}).
		AddRow(2, "c1", "assistant", "hi", t0.Add(time.Second)).
		AddRow(1, "c1", "user", "hello", t0)
	mock.ExpectQuery("SELECT \\* FROM `chat_messages` WHERE conversation_id = \\? ORDER BY created_at DESC,id DESC LIMIT").
		WillReturnRows(rows)

	msgs, err := NewMessageRepository(db).ListByConversationID(context.Background(), "c1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi", msgs[1].Content)
}

func TestConversationRepository_Touch(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `chat_conversations` SET `last_message_at`=\\? WHERE id = \\?").
		WithArgs(at, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewConversationRepository(db).Touch(context.Background(), "c1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
