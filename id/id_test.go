package id_test

import (
	"strings"
	"testing"

	"github.com/egyleader/queue-plus/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TaskID", id.NewTaskID, "task_"},
		{"QueueID", id.NewQueueID, "q_"},
		{"SubscriberID", id.NewSubscriberID, "sub_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixTask)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixTask {
		t.Errorf("Prefix() = %q, want %q", i.Prefix(), id.PrefixTask)
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		s := id.NewTaskID().String()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate ID generated: %s", s)
		}
		seen[s] = struct{}{}
	}
}

func TestParseRoundTrip(t *testing.T) {
	orig := id.NewTaskID()

	parsed, err := id.Parse(orig.String())
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", orig.String(), err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("round trip mismatch: %q != %q", parsed.String(), orig.String())
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{"", "not a typeid", "task_"}
	for _, c := range cases {
		if _, err := id.Parse(c); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", c)
		}
	}
}

func TestParseWithPrefix(t *testing.T) {
	taskID := id.NewTaskID()

	if _, err := id.ParseTaskID(taskID.String()); err != nil {
		t.Errorf("ParseTaskID(%q) error: %v", taskID.String(), err)
	}

	queueID := id.NewQueueID()
	if _, err := id.ParseTaskID(queueID.String()); err == nil {
		t.Error("ParseTaskID accepted a queue ID")
	}
}

func TestNilID(t *testing.T) {
	var nil_ id.ID
	if !nil_.IsNil() {
		t.Error("zero value should be nil")
	}
	if nil_.String() != "" {
		t.Errorf("nil ID String() = %q, want empty", nil_.String())
	}
}

func TestTextMarshaling(t *testing.T) {
	orig := id.NewTaskID()

	data, err := orig.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText error: %v", err)
	}

	var parsed id.ID
	if err := parsed.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("text round trip mismatch: %q != %q", parsed.String(), orig.String())
	}
}
