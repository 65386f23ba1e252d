package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
	"github.com/camazac/realty/pkg/api"
)

// mockMessageStorage is a mock implementation of MessageStorage for testing
type mockMessageStorage struct {
	messages  []*models.Message
	createErr error
	listErr   error
}

func (m *mockMessageStorage) CreateMessage(ctx context.Context, message *models.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockMessageStorage) ListMessages(ctx context.Context) ([]*models.Message, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.messages, nil
}

func validMessageRequest() api.CreateMessageRequest {
	return api.CreateMessageRequest{
		PropertyID: "prop-1",
		Message:    "Is it still available?",
		UserName:   "Alice Smith",
		UserEmail:  "Alice@Example.com",
	}
}

func TestMessageHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		modify     func(req *api.CreateMessageRequest)
		createErr  error
		wantStatus int
		wantField  string
	}{
		{
			name:       "success",
			userID:     "user-1",
			wantStatus: http.StatusCreated,
		},
		{
			name:       "matching userId in body",
			userID:     "user-1",
			modify:     func(req *api.CreateMessageRequest) { req.UserID = "user-1" },
			wantStatus: http.StatusCreated,
		},
		{
			name:       "anonymous",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "userId of another user",
			userID:     "user-1",
			modify:     func(req *api.CreateMessageRequest) { req.UserID = "user-2" },
			wantStatus: http.StatusBadRequest,
			wantField:  "userId",
		},
		{
			name:       "empty message",
			userID:     "user-1",
			modify:     func(req *api.CreateMessageRequest) { req.Message = "   " },
			wantStatus: http.StatusBadRequest,
			wantField:  "message",
		},
		{
			name:       "invalid email",
			userID:     "user-1",
			modify:     func(req *api.CreateMessageRequest) { req.UserEmail = "not-an-email" },
			wantStatus: http.StatusBadRequest,
			wantField:  "userEmail",
		},
		{
			name:       "unknown property",
			userID:     "user-1",
			createErr:  storage.ErrPropertyNotFound,
			wantStatus: http.StatusBadRequest,
			wantField:  "propertyId",
		},
		{
			name:       "unknown user",
			userID:     "user-1",
			createErr:  storage.ErrUserNotFound,
			wantStatus: http.StatusBadRequest,
			wantField:  "userId",
		},
		{
			name:       "storage failure",
			userID:     "user-1",
			createErr:  errors.New("database is locked"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockMessageStorage{createErr: tt.createErr}
			handler := NewMessageHandler(setupTestLogger(), store)
			now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			handler.now = func() time.Time { return now }

			body := validMessageRequest()
			if tt.modify != nil {
				tt.modify(&body)
			}

			req := jsonRequest(t, http.MethodPost, "/api/messages", body)
			if tt.userID != "" {
				req = req.WithContext(WithSession(req.Context(), tt.userID, "token"))
			}

			w := httptest.NewRecorder()
			handler.Create(w, req)

			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusCreated {
				require.Len(t, store.messages, 1)
				stored := store.messages[0]
				assert.Equal(t, tt.userID, stored.UserID)
				assert.Equal(t, "alice@example.com", stored.UserEmail)
				assert.Equal(t, now, stored.CreatedAt)

				got := decodeBody[api.Message](t, w)
				assert.Equal(t, stored.ID, got.ID)
				assert.Equal(t, "prop-1", got.PropertyID)
				return
			}

			if tt.wantField != "" {
				resp := decodeBody[api.ErrorResponse](t, w)
				assert.Contains(t, resp.Fields, tt.wantField)
			}
			if tt.createErr == nil {
				assert.Empty(t, store.messages)
			}
		})
	}
}

func TestMessageHandler_List(t *testing.T) {
	t.Run("returns stored messages", func(t *testing.T) {
		store := &mockMessageStorage{messages: []*models.Message{
			{ID: "m2", UserID: "u1", PropertyID: "p1", Body: "second"},
			{ID: "m1", UserID: "u1", PropertyID: "p1", Body: "first"},
		}}
		handler := NewMessageHandler(setupTestLogger(), store)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/messages", nil))

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[[]api.Message](t, w)
		require.Len(t, got, 2)
		assert.Equal(t, "m2", got[0].ID)
		assert.Equal(t, "second", got[0].Message)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := &mockMessageStorage{listErr: errors.New("boom")}
		handler := NewMessageHandler(setupTestLogger(), store)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/messages", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestMessageHandler_CreateOversizedBody(t *testing.T) {
	store := &mockMessageStorage{}
	handler := NewMessageHandler(setupTestLogger(), store)

	body := validMessageRequest()
	body.Message = strings.Repeat("x", maxJSONBody+1)

	req := jsonRequest(t, http.MethodPost, "/api/messages", body)
	req = req.WithContext(WithSession(req.Context(), "user-1", "token"))

	w := httptest.NewRecorder()
	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.messages)
}
