package tenants

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fono-labs/fono-dash/internal/models"
)

const sample = `{
  "tenants": [
    {"id": "sg-1", "name": "Saffron Grill", "location": "Stockton"},
    {"id": "bb-2", "name": "Blue Bayou"}
  ],
  "active": "bb-2"
}`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

func newTestService(t *testing.T, data string) (*Service, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tenants.json")
	writeFile(t, path, data)

	svc, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})
	return svc, path
}

func waitEvent(t *testing.T, svc *Service, want EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-svc.Events():
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event %d", want)
			return Event{}
		}
	}
}

func TestNew(t *testing.T) {
	svc, _ := newTestService(t, sample)

	if svc.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", svc.Count())
	}
	if got := svc.Active(); got.ID != "bb-2" || got.DisplayName() != "Blue Bayou" {
		t.Errorf("Active() = %+v", got)
	}
	if ev := <-svc.Events(); ev.Type != EventLoaded {
		t.Errorf("first event = %d, want EventLoaded", ev.Type)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"Empty", `{"tenants": []}`, ErrNoTenants},
		{"NoIDs", `{"tenants": [{"name": "Nameless"}]}`, ErrNoTenants},
		{"Garbage", `not json`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tenants.json")
			writeFile(t, path, tt.data)

			_, err := New(path)
			if err == nil {
				t.Fatal("New() error = nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("Missing", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "absent.json"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("New() error = %v, want ErrNotExist", err)
		}
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantCount  int
		wantActive string
	}{
		{"Object", sample, 2, "bb-2"},
		{"UnknownActive", `{"tenants":[{"id":"a"},{"id":"b"}],"active":"zz"}`, 2, "a"},
		{"NoActive", `{"tenants":[{"id":"a"}]}`, 1, "a"},
		{"BareArray", `[{"id":"x","name":"X"},{"id":"y"}]`, 2, "x"},
		{"SkipsBlankIDs", `{"tenants":[{"name":"nope"},{"id":"b"}]}`, 1, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants, active, err := parse([]byte(tt.data))
			if err != nil {
				t.Fatalf("parse() error = %v", err)
			}
			if len(tenants) != tt.wantCount || active != tt.wantActive {
				t.Errorf("parse() = %d tenants, active %q; want %d, %q", len(tenants), active, tt.wantCount, tt.wantActive)
			}
		})
	}
}

func TestSetActive(t *testing.T) {
	svc, path := newTestService(t, sample)

	if err := svc.SetActive("sg-1"); err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}
	if got := svc.Active().ID; got != "sg-1" {
		t.Errorf("Active().ID = %q, want sg-1", got)
	}
	waitEvent(t, svc, EventActiveChanged)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if file.Active != "sg-1" || len(file.Tenants) != 2 || file.Version != 1 {
		t.Errorf("saved file = %+v", file)
	}

	if err := svc.SetActive("nope"); err == nil {
		t.Error("SetActive(unknown) error = nil")
	}
	if got := svc.Active().ID; got != "sg-1" {
		t.Errorf("Active().ID = %q after failed switch", got)
	}
}

func TestNext(t *testing.T) {
	svc, _ := newTestService(t, sample)

	if got := svc.Next().ID; got != "sg-1" {
		t.Errorf("Next() = %q, want sg-1 (wraps around)", got)
	}
	if err := svc.SetActive("sg-1"); err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}
	if got := svc.Next().ID; got != "bb-2" {
		t.Errorf("Next() = %q, want bb-2", got)
	}
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t, sample)

	if got, ok := svc.Get("sg-1"); !ok || got.Location != "Stockton" {
		t.Errorf("Get(sg-1) = %+v, %v", got, ok)
	}
	if _, ok := svc.Get("zz"); ok {
		t.Error("Get(zz) found a tenant")
	}
}

func TestFileWatch(t *testing.T) {
	svc, path := newTestService(t, sample)
	<-svc.Events()

	writeFile(t, path, `{"tenants":[{"id":"new-1","name":"New Place"}]}`)
	waitEvent(t, svc, EventChanged)

	if svc.Count() != 1 || svc.Active().ID != "new-1" {
		t.Errorf("after reload: count %d active %q", svc.Count(), svc.Active().ID)
	}

	writeFile(t, path, `{"tenants": []}`)
	ev := waitEvent(t, svc, EventError)
	if !errors.Is(ev.Error, ErrNoTenants) {
		t.Errorf("reload error = %v, want ErrNoTenants", ev.Error)
	}
	if svc.Count() != 1 {
		t.Error("broken file replaced the previous list")
	}
}

func TestStatic(t *testing.T) {
	svc := Static(models.Tenant{ID: "solo"})
	defer svc.Close()

	if svc.Active().ID != "solo" || svc.Count() != 1 {
		t.Errorf("Static() = %+v", svc.Tenants())
	}
	if err := svc.SetActive("solo"); err != nil {
		t.Errorf("SetActive(same) error = %v", err)
	}
	if got := svc.Next().ID; got != "solo" {
		t.Errorf("Next() = %q", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	svc, _ := newTestService(t, sample)

	if err := svc.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}
