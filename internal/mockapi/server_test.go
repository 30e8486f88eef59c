package mockapi

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fono-labs/fono-dash/internal/api"
	"github.com/fono-labs/fono-dash/internal/db"
	"github.com/fono-labs/fono-dash/internal/models"
	"github.com/fono-labs/fono-dash/internal/stream"
)

var fixedNow = time.Date(2026, 6, 10, 18, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store, err := db.New(db.MemoryPath)
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}
	s := New(store)
	s.Now = func() time.Time { return fixedNow }
	srv := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.Hub.Close()
		srv.Close()
		_ = store.Close()
	})
	return s, srv
}

func insertCall(t *testing.T, s *Server, id string, status models.CallStatus, at time.Time) {
	t.Helper()
	call := &models.CallRecord{ID: id, TenantID: "t1", CallerNumber: "+12095550142", Status: status}
	if err := s.Store.InsertCall(context.Background(), call, at); err != nil {
		t.Fatalf("InsertCall() failed: %v", err)
	}
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get(headerRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestCalls(t *testing.T) {
	s, srv := newTestServer(t)
	for i, status := range []models.CallStatus{
		models.StatusCompleted, models.StatusMissed, models.StatusCompleted,
		models.StatusNoAnswer, models.StatusMissed,
	} {
		insertCall(t, s, string(rune('a'+i)), status, fixedNow.Add(time.Duration(i)*time.Minute))
	}
	client := api.New(srv.URL)
	ctx := context.Background()

	tests := []struct {
		name      string
		filters   api.CallLogFilters
		wantIDs   []string
		wantTotal int
		wantPages int
	}{
		{"All", api.CallLogFilters{PerPage: 2}, []string{"e", "d"}, 5, 3},
		{"SecondPage", api.CallLogFilters{Page: 2, PerPage: 2}, []string{"c", "b"}, 5, 3},
		{"Missed", api.CallLogFilters{Status: "missed"}, []string{"e", "b"}, 2, 1},
		{"NoAnswerAlias", api.CallLogFilters{Status: "no_answer"}, []string{"d"}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := client.FetchCalls(ctx, "t1", tt.filters)
			if err != nil {
				t.Fatalf("FetchCalls() error = %v", err)
			}
			if page.Total != tt.wantTotal || page.TotalPages != tt.wantPages {
				t.Errorf("total %d pages %d, want %d %d", page.Total, page.TotalPages, tt.wantTotal, tt.wantPages)
			}
			if len(page.Records) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(page.Records), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if page.Records[i].ID != id {
					t.Errorf("record %d = %s, want %s", i, page.Records[i].ID, id)
				}
			}
		})
	}
}

func TestSummary(t *testing.T) {
	s, srv := newTestServer(t)
	insertCall(t, s, "in", models.StatusMissed, fixedNow)
	insertCall(t, s, "out", models.StatusMissed, fixedNow.Add(-72*time.Hour))
	client := api.New(srv.URL)

	window := models.TimeRange{Start: fixedNow.Add(-time.Hour), End: fixedNow.Add(time.Hour)}
	summary, err := client.FetchSummary(context.Background(), "t1", &window)
	if err != nil {
		t.Fatalf("FetchSummary() error = %v", err)
	}
	if summary.TotalCalls != 1 || summary.MissedCalls != 1 {
		t.Errorf("summary = %+v", summary)
	}

	all, err := client.FetchSummary(context.Background(), "t1", nil)
	if err != nil {
		t.Fatalf("FetchSummary() error = %v", err)
	}
	if all.TotalCalls != 2 || all.Period != "all" {
		t.Errorf("summary = %+v", all)
	}

	resp, err := http.Get(srv.URL + "/api/v1/dashboard/t1/summary?start_date=yesterday")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestBridge(t *testing.T) {
	s, srv := newTestServer(t)
	client := api.New(srv.URL)
	ctx := context.Background()

	resp, err := client.Bridge(ctx, "t1", "+12095550142")
	if err != nil {
		t.Fatalf("Bridge() error = %v", err)
	}
	if resp.CallID == "" {
		t.Error("empty call id")
	}
	call, err := s.Store.GetCall(ctx, resp.CallID)
	if err != nil {
		t.Fatalf("GetCall() error = %v", err)
	}
	if call.Status != models.StatusInProgress {
		t.Errorf("bridged call status = %q", call.Status)
	}
	if n, _ := s.Store.CountBridges(ctx, "t1"); n != 1 {
		t.Errorf("CountBridges() = %d, want 1", n)
	}

	_, err = client.Bridge(ctx, "t1", "12")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Errorf("Bridge(short) error = %v, want 400 APIError", err)
	}
}

func TestDevRoutes(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"CreateMissingTenant", "/api/v1/dev/calls", `{"status":"missed"}`, http.StatusBadRequest},
		{"CreateUnknownStatus", "/api/v1/dev/calls", `{"tenant_id":"t1","status":"exploded"}`, http.StatusBadRequest},
		{"Create", "/api/v1/dev/calls", `{"tenant_id":"t1","status":"missed"}`, http.StatusCreated},
		{"StatusUnknownCall", "/api/v1/dev/calls/zz/status", `{"status":"completed"}`, http.StatusNotFound},
		{"RecordingBadURL", "/api/v1/dev/calls/zz/recording", `{"recording_url":"not a url"}`, http.StatusBadRequest},
		{"RecordingUnknownCall", "/api/v1/dev/calls/zz/recording", `{"recording_url":"https://r/zz.mp3"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestEvents_MissingTenant(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/events/calls")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEvents_EndToEnd(t *testing.T) {
	s, srv := newTestServer(t)
	s.Heartbeat = 20 * time.Millisecond
	client := api.New(srv.URL)

	events := make(chan models.CallEvent, 8)
	sc := stream.New(stream.Options{})
	defer sc.Close()
	sc.Subscribe(func(ev models.CallEvent) { events <- ev })
	sc.Connect(client.EventsURL("t1"))

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub.Subscribers("t1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Let a heartbeat or two pass; comments must not surface as events.
	time.Sleep(50 * time.Millisecond)

	resp := post(t, srv.URL+"/api/v1/dev/calls", `{"tenant_id":"t1","caller_number":"+12095550142","status":"in-progress"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	next := func() models.CallEvent {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return models.CallEvent{}
		}
	}

	ev := next()
	if ev.Kind != models.EventCallStatus || ev.CallStatus.Status != models.StatusInProgress {
		t.Fatalf("event = %+v", ev)
	}
	if ev.CallerNumber() != "+12095550142" || !ev.CallStatus.Timestamp.Equal(fixedNow) {
		t.Errorf("payload = %+v", ev.CallStatus)
	}

	id := ev.CallID()
	post(t, srv.URL+"/api/v1/dev/calls/"+id+"/status", `{"status":"completed","duration":75}`)
	post(t, srv.URL+"/api/v1/dev/calls/"+id+"/recording", `{"recording_url":"https://r/1.mp3"}`)

	if ev := next(); ev.CallStatus == nil || ev.CallStatus.Status != models.StatusCompleted {
		t.Errorf("second event = %+v", ev)
	}
	if ev := next(); ev.Kind != models.EventRecordingReady || ev.RecordingReady.RecordingURL != "https://r/1.mp3" {
		t.Errorf("third event = %+v", ev)
	}

	if !sc.Status().Live() {
		t.Errorf("stream state = %+v", sc.Status())
	}
}

func TestHub(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe("t1")
	b, _ := h.Subscribe("t1")
	other, _ := h.Subscribe("t2")

	h.Publish("t1", Frame{Event: "x"})
	if f := <-a; f.Event != "x" {
		t.Errorf("a got %+v", f)
	}
	if f := <-b; f.Event != "x" {
		t.Errorf("b got %+v", f)
	}
	select {
	case f := <-other:
		t.Errorf("other tenant got %+v", f)
	default:
	}

	unsubA()
	unsubA()
	if _, ok := <-a; ok {
		t.Error("unsubscribed channel still open")
	}
	if h.Subscribers("t1") != 1 {
		t.Errorf("Subscribers() = %d, want 1", h.Subscribers("t1"))
	}

	// A full stream drops frames instead of blocking.
	for range frameBuffer + 5 {
		h.Publish("t1", Frame{Event: "y"})
	}

	h.Close()
	h.Close()
	if _, ok := <-other; ok {
		t.Error("Close left a channel open")
	}
	late, _ := h.Subscribe("t1")
	if _, ok := <-late; ok {
		t.Error("Subscribe after Close returned an open channel")
	}
}

func TestSeed(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	if err := s.Seed(ctx, "t1", 40, 3, rand.New(rand.NewPCG(1, 2))); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	calls, total, err := s.Store.ListCalls(ctx, db.CallQuery{TenantID: "t1"})
	if err != nil {
		t.Fatalf("ListCalls() error = %v", err)
	}
	if total != 40 {
		t.Errorf("total = %d, want 40", total)
	}
	earliest := models.Midnight(fixedNow).Add(-2 * models.Day)
	for _, c := range calls {
		at, ok := c.CreatedTime()
		if !ok || at.After(fixedNow) || at.Before(earliest) {
			t.Errorf("call %s at %s outside seeded days", c.ID, c.CreatedAt)
		}
		if !c.Status.Known() {
			t.Errorf("call %s has status %q", c.ID, c.Status)
		}
	}
}

func TestSimulateCall(t *testing.T) {
	s, _ := newTestServer(t)
	frames, unsubscribe := s.Hub.Subscribe("t1")
	defer unsubscribe()

	if err := s.simulateCall(context.Background(), "t1", time.Millisecond, rand.New(rand.NewPCG(3, 4))); err != nil {
		t.Fatalf("simulateCall() error = %v", err)
	}

	first := <-frames
	if first.Event != string(models.EventCallStatus) {
		t.Fatalf("first frame = %+v", first)
	}
	if p := first.Data.(statusPayload); p.Status != string(models.StatusInProgress) {
		t.Errorf("first status = %q", p.Status)
	}
	second := <-frames
	p := second.Data.(statusPayload)
	call, err := s.Store.GetCall(context.Background(), p.CallID)
	if err != nil {
		t.Fatalf("GetCall() error = %v", err)
	}
	if string(call.Status) != p.Status || call.Status == models.StatusInProgress {
		t.Errorf("stored status %q, published %q", call.Status, p.Status)
	}
}
