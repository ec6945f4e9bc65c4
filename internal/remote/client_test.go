package remote

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPushReturnsGeneratedKey(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Write([]byte(`{"name":"-Nabc123"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	key, err := c.PushTask(context.Background(), TaskRecord{Title: "Dishes", Priority: "LOW", Status: "UPCOMING"})
	if err != nil {
		t.Fatalf("push task: %v", err)
	}
	if key != "-Nabc123" {
		t.Errorf("key = %q, want %q", key, "-Nabc123")
	}
	if gotMethod != http.MethodPost || gotPath != "/tasks.json" {
		t.Errorf("request = %s %s, want POST /tasks.json", gotMethod, gotPath)
	}
}

func TestPushEmptyKeyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	if _, err := c.PushPerson(context.Background(), PersonRecord{Name: "Alice"}); err == nil {
		t.Fatal("expected error for empty push key")
	}
}

func TestPushDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	if _, err := c.PushHousehold(context.Background(), HouseholdRecord{Name: "Smith"}); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1 (writes must not retry)", n)
	}
}

func TestQueryEncodesFilter(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"-k1":{"name":"Alice","householdId":"-h1"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	people, err := c.PeopleByHousehold(context.Background(), "-h1")
	if err != nil {
		t.Fatalf("people by household: %v", err)
	}
	if len(people) != 1 || people["-k1"].Name != "Alice" {
		t.Fatalf("people = %+v", people)
	}
	want := `equalTo=%22-h1%22&orderBy=%22householdId%22`
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

func TestQueryNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	tasks, err := c.TasksByHousehold(context.Background(), "-h1")
	if err != nil {
		t.Fatalf("tasks by household: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks = %+v, want empty", tasks)
	}
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"-h1":{"name":"Smith Family","email":"s@example.com","passwordHash":"h","salt":"s"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	got, err := c.HouseholdsByName(context.Background(), "Smith Family")
	if err != nil {
		t.Fatalf("households by name: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d households, want 1", len(got))
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	if _, err := c.HouseholdsByName(context.Background(), "Smith Family"); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestFeedEventsSortedNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/-h1.json" {
			t.Errorf("path = %q, want /feeds/-h1.json", r.URL.Path)
		}
		w.Write([]byte(`{
			"-e1":{"timestamp":100,"taskTitle":"Dishes","userName":"Alice","eventType":"CREATED"},
			"-e2":{"timestamp":300,"taskTitle":"Trash","userName":"Bob","eventType":"COMPLETED"},
			"-e3":{"timestamp":200,"taskTitle":"Dishes","userName":"Alice","eventType":"MODIFIED"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	events, err := c.FeedEvents(context.Background(), "-h1")
	if err != nil {
		t.Fatalf("feed events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Timestamp != 300 || events[1].Timestamp != 200 || events[2].Timestamp != 100 {
		t.Errorf("order = %d, %d, %d; want 300, 200, 100",
			events[0].Timestamp, events[1].Timestamp, events[2].Timestamp)
	}
}

func TestSetAndDelete(t *testing.T) {
	var gotMethods []string
	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethods = append(gotMethods, r.Method)
		gotPaths = append(gotPaths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	if err := c.SetTask(context.Background(), "-t1", TaskRecord{Title: "Dishes"}); err != nil {
		t.Fatalf("set task: %v", err)
	}
	if err := c.DeleteTask(context.Background(), "-t1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	if gotMethods[0] != http.MethodPut || gotPaths[0] != "/tasks/-t1.json" {
		t.Errorf("first request = %s %s, want PUT /tasks/-t1.json", gotMethods[0], gotPaths[0])
	}
	if gotMethods[1] != http.MethodDelete || gotPaths[1] != "/tasks/-t1.json" {
		t.Errorf("second request = %s %s, want DELETE /tasks/-t1.json", gotMethods[1], gotPaths[1])
	}
}
