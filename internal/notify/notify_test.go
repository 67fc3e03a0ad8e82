package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/metrics"
)

type recordingSender struct {
	mu      sync.Mutex
	got     []Attempt
	err     error
	release chan struct{}
}

func (r *recordingSender) Send(ctx context.Context, a Attempt) error {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, a)
	return r.err
}

func (r *recordingSender) attempts() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Attempt(nil), r.got...)
}

func TestDispatch_DoesNotBlock(t *testing.T) {
	s := &recordingSender{release: make(chan struct{})}
	d := NewDispatcher(s, time.Second, nil)

	returned := make(chan struct{})
	go func() {
		d.Dispatch(Attempt{Success: false, PasswordAttempt: "guess"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("Dispatch blocked on a slow sender")
	}

	close(s.release)
	d.Wait()
	got := s.attempts()
	if len(got) != 1 || got[0].PasswordAttempt != "guess" || got[0].At.IsZero() {
		t.Fatalf("unexpected attempts %+v", got)
	}
}

func TestDispatch_SuccessDropsPassword(t *testing.T) {
	s := &recordingSender{}
	d := NewDispatcher(s, time.Second, nil)
	d.Dispatch(Attempt{Success: true, PasswordAttempt: "secret"})
	d.Wait()
	if got := s.attempts(); len(got) != 1 || got[0].PasswordAttempt != "" {
		t.Fatalf("password must not be forwarded on success: %+v", got)
	}
}

func TestDispatch_FailureIsCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	d := NewDispatcher(&recordingSender{err: errors.New("boom")}, time.Second, m)
	d.Dispatch(Attempt{})
	d.Wait()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() != "safewatch_notifications_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetValue() == "failed" && metric.GetCounter().GetValue() == 1 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected one failed notification to be counted")
	}
}

func TestWebhookSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, srv.Client()).Send(context.Background(), Attempt{Success: false, PasswordAttempt: "1234"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["success"] != false || got["passwordAttempt"] != "1234" {
		t.Fatalf("unexpected payload %v", got)
	}

	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer fail.Close()
	err = NewWebhookSender(fail.URL, nil).Send(context.Background(), Attempt{Success: true})
	var ne *NotificationError
	if !errors.As(err, &ne) || ne.Sender != "webhook" {
		t.Fatalf("expected webhook NotificationError, got %v", err)
	}
}

func TestMailgunSender_NotConfigured(t *testing.T) {
	err := NewMailgunSender(config.MailgunConfig{Domain: "example.com"}).Send(context.Background(), Attempt{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestMailgunSender_Send(t *testing.T) {
	var subject, text, to string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/example.com/messages" {
			http.NotFound(w, r)
			return
		}
		subject = r.FormValue("subject")
		text = r.FormValue("text")
		to = r.FormValue("to")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<1@example.com>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	s := NewMailgunSender(config.MailgunConfig{
		APIKey:    "key-test",
		Domain:    "example.com",
		Recipient: "owner@example.com",
		BaseURL:   srv.URL + "/v3",
	})
	if err := s.Send(context.Background(), Attempt{PasswordAttempt: "letmein", At: time.Now()}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if subject != subjectFailure || to != "owner@example.com" {
		t.Fatalf("unexpected mail %q to %q", subject, to)
	}
	if !strings.Contains(text, `Attempted Password: "letmein"`) {
		t.Fatalf("failure mail should carry the attempt: %q", text)
	}
}

func TestMultiSender_JoinsErrors(t *testing.T) {
	ok := &recordingSender{}
	bad := &recordingSender{err: errors.New("down")}
	err := MultiSender{bad, ok}.Send(context.Background(), Attempt{Success: true})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(ok.attempts()) != 1 {
		t.Fatalf("a failing sender must not stop the others")
	}
}

func TestCompose(t *testing.T) {
	subj, text := Compose(Attempt{Success: true, At: time.Now()})
	if subj != subjectSuccess || strings.Contains(text, "Attempted Password") {
		t.Fatalf("unexpected success mail %q / %q", subj, text)
	}
}
