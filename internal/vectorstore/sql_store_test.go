package vectorstore

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

func chunkRows() *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "document_id", "chunk_index", "content", "embedding", "metadata", "created_at"}).
		AddRow(1, "cv-main", 0, "React dashboards", "[1,0]",
			`{"document_id":"cv-main","title":"CV","type":"cv","source":"direct-input","chunk_index":0,"technologies":["React"]}`, now).
		AddRow(2, "cv-main", 1, "Go services", "[0.6,0.8]",
			`{"document_id":"cv-main","title":"CV","type":"cv","source":"direct-input","chunk_index":1,"technologies":["Go"]}`, now).
		AddRow(3, "blog-1", 0, "Gardening", "[0,1]",
			`{"document_id":"blog-1","title":"Blog","type":"blog","source":"blog","chunk_index":0}`, now).
		AddRow(4, "blog-2", 0, "Wrong dimension", "[1,0,0]",
			`{"document_id":"blog-2","type":"blog","chunk_index":0}`, now)
}

func TestSQLStore_SimilaritySearch(t *testing.T) {
	ctx := context.Background()
	query := []float32{1, 0}

	t.Run("Ordered And Bounded", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `documents` ORDER BY document_id ASC, chunk_index ASC").WillReturnRows(chunkRows())

		res, err := NewSQLStore(db).SimilaritySearch(ctx, query, 2, nil)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "React dashboards", res[0].Content)
		assert.InDelta(t, 1.0, res[0].Score, 1e-6)
		assert.Equal(t, "Go services", res[1].Content)
		assert.InDelta(t, 0.6, res[1].Score, 1e-6)
		assert.Equal(t, 1, res[1].Metadata.ChunkIndex)
		assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
	})

	t.Run("Metadata Filter", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `documents`").WillReturnRows(chunkRows())

		res, err := NewSQLStore(db).SimilaritySearch(ctx, query, 5, model.MetadataFilter{"technologies": {"go"}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Go services", res[0].Content)
	})

	t.Run("Document Filter Narrows Query", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `documents` WHERE document_id IN \\(\\?\\)").
			WithArgs("blog-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "chunk_index", "content", "embedding", "metadata"}).
				AddRow(3, "blog-1", 0, "Gardening", "[0,1]", `{"document_id":"blog-1","type":"blog"}`))

		res, err := NewSQLStore(db).SimilaritySearch(ctx, query, 5, model.MetadataFilter{"document_id": {"blog-1"}})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, 0.0, res[0].Score)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Zero K", func(t *testing.T) {
		db, mock := newMockDB(t)
		res, err := NewSQLStore(db).SimilaritySearch(ctx, query, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_Writes(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert Chunks", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `documents`").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := NewSQLStore(db).UpsertChunks(ctx, []model.EmbeddedChunk{{
			Content:   "hello",
			Embedding: []float32{1, 0},
			Metadata:  model.ChunkMetadata{DocumentID: "d1"},
		}})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete Document In Transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM `documents` WHERE document_id = \\?").WithArgs("d1").WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec("DELETE FROM `documents_metadata` WHERE id = \\?").WithArgs("d1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewSQLStore(db).DeleteDocument(ctx, "d1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete Rolls Back On Failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM `documents` WHERE document_id = \\?").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := NewSQLStore(db).DeleteDocument(ctx, "d1")
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
