package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/service/notify"
)

func newNotification() *model.Notification {
	return &model.Notification{
		Title: "Ingestion run finished",
		Alert: true,
		Fields: []model.NotificationField{
			{Name: "Articles", Value: "12"},
			{Name: "Failed", Value: "1"},
		},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := notify.NewWebhook("")
	gt.Error(t, err)

	_, err = notify.NewBot("", "C123")
	gt.Error(t, err)

	_, err = notify.NewBot("xoxb-test", "")
	gt.Error(t, err)
}

func TestSlack_Webhook(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		gt.NoError(t, err)
		gt.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := notify.NewWebhook(server.URL)
	gt.NoError(t, err).Required()
	gt.NoError(t, n.Notify(context.Background(), newNotification())).Required()

	text, ok := payload["text"].(string)
	gt.B(t, ok).True()
	gt.String(t, text).Contains(":warning: Ingestion run finished")
	gt.String(t, text).Contains("Failed: 1")

	blocks, ok := payload["blocks"].([]any)
	gt.B(t, ok).True()
	gt.A(t, blocks).Length(2)
}

func TestSlack_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n, err := notify.NewWebhook(server.URL)
	gt.NoError(t, err).Required()
	gt.Error(t, n.Notify(context.Background(), newNotification()))
}

func TestNop(t *testing.T) {
	gt.NoError(t, notify.Nop{}.Notify(context.Background(), newNotification()))
}
