package sendgridmail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodyforce/admin-api/internal/ports/out/mailer"
)

func TestPrepare_SetsEnvelope(t *testing.T) {
	t.Parallel()

	m := New("key", "BodyForce", "", "noreply@bodyforce.test")
	v3 := m.prepare(mailer.Message{
		To:      mail.Address{Name: "Marie Dupont", Address: "marie@example.com"},
		Subject: "Invitation",
		Text:    "hello",
	})

	require.Len(t, v3.Personalizations, 1)
	assert.Equal(t, "[BodyForce] Invitation", v3.Personalizations[0].Subject)
	require.Len(t, v3.Personalizations[0].To, 1)
	assert.Equal(t, "marie@example.com", v3.Personalizations[0].To[0].Address)
	assert.Equal(t, "BodyForce", v3.From.Name)
	require.Len(t, v3.Content, 1)
	assert.Equal(t, "text/plain", v3.Content[0].Type)
}

func TestSend_PostsToAPI(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	m := New("key", "BodyForce", "Accueil", "noreply@bodyforce.test")
	m.host = srv.URL
	err := m.Send(context.Background(), mailer.Message{
		To:      mail.Address{Address: "marie@example.com"},
		Subject: "Invitation",
		Text:    "hello",
		HTML:    "<p>hello</p>",
	})
	require.NoError(t, err)
	assert.NotNil(t, got["personalizations"])
}

func TestSend_ReportsRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	t.Cleanup(srv.Close)

	m := New("bad", "BodyForce", "", "noreply@bodyforce.test")
	m.host = srv.URL
	err := m.Send(context.Background(), mailer.Message{To: mail.Address{Address: "x@example.com"}, Subject: "s", Text: "t"})
	assert.ErrorContains(t, err, "status 401")
}
