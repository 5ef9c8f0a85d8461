package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-rag/internal/ai"
	"portfolio-rag/internal/app"
	"portfolio-rag/internal/model"
)

type MockAuthenticator struct{ mock.Mock }

func (m *MockAuthenticator) Login(input app.LoginInput) (*app.AuthResult, error) {
	args := m.Called(input)
	res, _ := args.Get(0).(*app.AuthResult)
	return res, args.Error(1)
}

type MockChatResponder struct{ mock.Mock }

func (m *MockChatResponder) Respond(ctx context.Context, message string, history []ai.ChatMessage, opts app.ChatOptions) app.ChatResult {
	return m.Called(ctx, message, history, opts).Get(0).(app.ChatResult)
}

func (m *MockChatResponder) AskWithContext(ctx context.Context, message string, history []ai.ChatMessage) app.AskResult {
	return m.Called(ctx, message, history).Get(0).(app.AskResult)
}

func (m *MockChatResponder) History(ctx context.Context, conversationID string) ([]model.Message, error) {
	args := m.Called(ctx, conversationID)
	msgs, _ := args.Get(0).([]model.Message)
	return msgs, args.Error(1)
}

type MockIngester struct{ mock.Mock }

func (m *MockIngester) Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error) {
	args := m.Called(ctx, input)
	res, _ := args.Get(0).(*app.IngestResult)
	return res, args.Error(1)
}

func (m *MockIngester) IngestCV(ctx context.Context, cv model.CVData) (*app.IngestResult, error) {
	args := m.Called(ctx, cv)
	res, _ := args.Get(0).(*app.IngestResult)
	return res, args.Error(1)
}

func (m *MockIngester) ListDocuments(ctx context.Context) ([]model.Document, error) {
	args := m.Called(ctx)
	docs, _ := args.Get(0).([]model.Document)
	return docs, args.Error(1)
}

func (m *MockIngester) DeleteDocument(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

