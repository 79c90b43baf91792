package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"subscription-reminder/internal/application/dto"
	"subscription-reminder/internal/domain/entity"
	appErrors "subscription-reminder/internal/pkg/errors"
	"subscription-reminder/internal/pkg/logger"
	"sync"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushRecorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (p *pushRecorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.mu.Lock()
		p.bodies = append(p.bodies, body)
		p.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestClient(t *testing.T, status int) (*Client, *pushRecorder) {
	t.Helper()
	rec := &pushRecorder{}
	srv := httptest.NewServer(rec.handler(status))
	t.Cleanup(srv.Close)

	c, err := NewClient("secret", "token", time.UTC, logger.NewNop(), linebot.WithEndpointBase(srv.URL))
	require.NoError(t, err)
	return c, rec
}

func reminderFor(lineUserID *string) dto.ReminderEmail {
	return dto.ReminderEmail{
		To:   "alice@example.com",
		Type: entity.ReminderLabel(2),
		Subscription: &entity.Subscription{
			Name:          "Netflix",
			Price:         15.99,
			Currency:      "USD",
			PaymentMethod: "Credit Card",
			RenewalDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			User:          &entity.User{Name: "Alice", Email: "alice@example.com", LineUserID: lineUserID},
		},
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient("", "token", time.UTC, logger.NewNop())
	assert.ErrorIs(t, err, appErrors.ErrInvalidConfiguration)
}

func TestClient_SendReminder(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK)
	lineID := "U1234"

	require.NoError(t, c.SendReminder(context.Background(), reminderFor(&lineID)))

	require.Len(t, rec.bodies, 1)
	assert.Equal(t, "U1234", rec.bodies[0]["to"])
	messages := rec.bodies[0]["messages"].([]any)
	require.Len(t, messages, 1)
	text := messages[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "Netflix renews on Mar 10, 2025 (in 2 days)")
}

func TestClient_SendReminder_NoLineAccount(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK)

	require.NoError(t, c.SendReminder(context.Background(), reminderFor(nil)))
	assert.Empty(t, rec.bodies)
}

func TestClient_SendReminder_APIError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusInternalServerError)
	lineID := "U1234"

	err := c.SendReminder(context.Background(), reminderFor(&lineID))
	assert.ErrorIs(t, err, appErrors.ErrNotification)
}
