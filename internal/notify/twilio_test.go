package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type smsRequest struct {
	path, user, pass, to, from, body string
}

func twilioServer(t *testing.T, status func(to string) int) (*httptest.Server, *[]smsRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []smsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		user, pass, _ := r.BasicAuth()
		req := smsRequest{
			path: r.URL.Path,
			user: user,
			pass: pass,
			to:   r.PostForm.Get("To"),
			from: r.PostForm.Get("From"),
			body: r.PostForm.Get("Body"),
		}
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		code := status(req.to)
		w.WriteHeader(code)
		if code >= 400 {
			_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
			return
		}
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestNewTwilioValidation(t *testing.T) {
	valid := TwilioOptions{AccountSID: "AC1", AuthToken: "tok", From: "+15550000", To: "+15551111"}

	_, err := NewTwilio(valid)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*TwilioOptions){
		"no sid":        func(o *TwilioOptions) { o.AccountSID = "" },
		"no token":      func(o *TwilioOptions) { o.AuthToken = "" },
		"no sender":     func(o *TwilioOptions) { o.From = "" },
		"no recipient":  func(o *TwilioOptions) { o.To = "" },
	} {
		t.Run(name, func(t *testing.T) {
			opts := valid
			mutate(&opts)
			_, err := NewTwilio(opts)
			assert.Error(t, err)
		})
	}
}

func TestTwilioSend(t *testing.T) {
	srv, reqs := twilioServer(t, func(string) int { return http.StatusCreated })

	n, err := NewTwilio(TwilioOptions{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+15550000",
		To:         "+15551111",
		Timeout:    2 * time.Second,
	})
	require.NoError(t, err)

	require.NoError(t, n.Send(context.Background(), AlertMessage))
	require.Len(t, *reqs, 1)

	first := (*reqs)[0]
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", first.path)
	assert.Equal(t, "AC123", first.user)
	assert.Equal(t, "secret", first.pass)
	assert.Equal(t, "+15551111", first.to)
	assert.Equal(t, "+15550000", first.from)
	assert.Equal(t, AlertMessage, first.body)
}

func TestTwilioSendRejected(t *testing.T) {
	srv, reqs := twilioServer(t, func(string) int { return http.StatusBadRequest })

	n, err := NewTwilio(TwilioOptions{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+15550000",
		To:         "+1bad",
	})
	require.NoError(t, err)

	err = n.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "+1bad"))
	assert.True(t, strings.Contains(err.Error(), "Invalid 'To' Phone Number"))
	assert.Len(t, *reqs, 1)
}

func TestTwilioSendCancelled(t *testing.T) {
	srv, _ := twilioServer(t, func(string) int { return http.StatusCreated })
	n, err := NewTwilio(TwilioOptions{
		BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "t", From: "+1", To: "+2",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, n.Send(ctx, "hi"))
}
