package registry

import (
	"errors"
	"reflect"
	"testing"
)

var testBaseline = map[int]string{
	0: "identify_response offset=%u data=%.*s",
	1: "identify offset=%u count=%c",
}

func TestDeclareCommandConflicts(t *testing.T) {
	tests := []struct {
		name    string
		declare func(r *Registry) error
		wantErr bool
	}{
		{
			"identical redeclaration is idempotent",
			func(r *Registry) error {
				if err := r.DeclareCommand("handle_move", "0", "move", "move x=%u"); err != nil {
					return err
				}
				return r.DeclareCommand("handle_move", "0", "move", "move x=%u")
			},
			false,
		},
		{
			"different handler",
			func(r *Registry) error {
				if err := r.DeclareCommand("handle_move", "0", "move", "move x=%u"); err != nil {
					return err
				}
				return r.DeclareCommand("other_handler", "0", "move", "move x=%u")
			},
			true,
		},
		{
			"different flags",
			func(r *Registry) error {
				if err := r.DeclareCommand("handle_move", "0", "move", "move x=%u"); err != nil {
					return err
				}
				return r.DeclareCommand("handle_move", "HF_IN_SHUTDOWN", "move", "move x=%u")
			},
			true,
		},
		{
			"different format",
			func(r *Registry) error {
				if err := r.DeclareCommand("handle_move", "0", "move", "move x=%u"); err != nil {
					return err
				}
				return r.DeclareCommand("handle_move", "0", "move", "move x=%hu")
			},
			true,
		},
		{
			"format clashes with prior encoder",
			func(r *Registry) error {
				if err := r.DeclareEncoder("status t=%u"); err != nil {
					return err
				}
				return r.DeclareCommand("handle_status", "0", "status", "status t=%hu")
			},
			true,
		},
		{
			"format clashes with baseline",
			func(r *Registry) error {
				return r.DeclareCommand("handle_identify", "0", "identify", "identify offset=%u")
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testBaseline)
			err := tt.declare(r)
			if tt.wantErr {
				var conflict *ConflictError
				if !errors.As(err, &conflict) {
					t.Fatalf("expected ConflictError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDeclareEncoderConflict(t *testing.T) {
	r := New(testBaseline)
	if err := r.DeclareEncoder("temp_reading value=%u"); err != nil {
		t.Fatalf("first DeclareEncoder error: %v", err)
	}
	err := r.DeclareEncoder("temp_reading value=%hu")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestDeclareOutputDedup(t *testing.T) {
	r := New(testBaseline)
	for i := 0; i < 3; i++ {
		if err := r.DeclareOutput("count %u"); err != nil {
			t.Fatalf("DeclareOutput error: %v", err)
		}
	}
	if got := len(r.Encoders()); got != 1 {
		t.Errorf("got %d encoder entries, want 1", got)
	}
}

func TestAssignIdentifiersBaselineStability(t *testing.T) {
	r := New(testBaseline)
	if err := r.DeclareCommand("handle_move", "0", "move", "move x=%u"); err != nil {
		t.Fatal(err)
	}
	if err := r.DeclareEncoder("status t=%u"); err != nil {
		t.Fatal(err)
	}
	r.AssignIdentifiers()

	for id, format := range testBaseline {
		got, ok := r.MessageID(format)
		if !ok || got != id {
			t.Errorf("baseline message %q moved: got id %d, want %d", format, got, id)
		}
	}
	// New identifiers continue past the baseline maximum.
	if id, _ := r.MessageID("move x=%u"); id != 2 {
		t.Errorf("move x=%%u id = %d, want 2", id)
	}
	if id, _ := r.MessageID("status t=%u"); id != 3 {
		t.Errorf("status t=%%u id = %d, want 3", id)
	}
}

func TestAssignIdentifiersOrderIndependent(t *testing.T) {
	build := func(order []func(*Registry) error) *Registry {
		r := New(testBaseline)
		for _, declare := range order {
			if err := declare(r); err != nil {
				t.Fatal(err)
			}
		}
		r.AssignIdentifiers()
		return r
	}

	declCmd := func(r *Registry) error { return r.DeclareCommand("handle_move", "0", "move", "move x=%u") }
	declEnc := func(r *Registry) error { return r.DeclareEncoder("status t=%u") }
	declOut := func(r *Registry) error { return r.DeclareOutput("overflow %u") }

	a := build([]func(*Registry) error{declCmd, declEnc, declOut})
	b := build([]func(*Registry) error{declOut, declEnc, declCmd})

	for _, format := range []string{"move x=%u", "status t=%u", "overflow %u"} {
		idA, okA := a.MessageID(format)
		idB, okB := b.MessageID(format)
		if !okA || !okB || idA != idB {
			t.Errorf("format %q: id %d vs %d across declaration orders", format, idA, idB)
		}
	}
}

func TestPartitionDisjoint(t *testing.T) {
	r := New(testBaseline)
	if err := r.DeclareCommand("handle_move", "0", "move", "move x=%u"); err != nil {
		t.Fatal(err)
	}
	if err := r.DeclareEncoder("status t=%u"); err != nil {
		t.Fatal(err)
	}
	if err := r.DeclareOutput("overflow %u"); err != nil {
		t.Fatal(err)
	}
	r.AssignIdentifiers()

	commands := r.CommandIDs()
	responses := r.ResponseIDs()

	seen := make(map[int]string)
	for _, id := range commands {
		seen[id] = "command"
	}
	for _, id := range responses {
		if prev, ok := seen[id]; ok {
			t.Errorf("id %d classified as both %s and response", id, prev)
		}
		seen[id] = "response"
	}

	// The partition covers every assigned identifier.
	doc := make(map[string]any)
	if err := r.UpdateSchema(doc); err != nil {
		t.Fatal(err)
	}
	messages := doc["messages"].(map[int]string)
	if len(seen) != len(messages) {
		t.Errorf("partition covers %d ids, registry has %d messages", len(seen), len(messages))
	}
	for id := range messages {
		if _, ok := seen[id]; !ok {
			t.Errorf("id %d missing from command/response partition", id)
		}
	}
}

func TestUpdateSchema(t *testing.T) {
	r := New(map[int]string{1: "ping"})
	if err := r.DeclareCommand("handle_move", "0", "move", "move x=%u"); err != nil {
		t.Fatal(err)
	}
	r.AssignIdentifiers()

	doc := make(map[string]any)
	if err := r.UpdateSchema(doc); err != nil {
		t.Fatal(err)
	}

	messages := doc["messages"].(map[int]string)
	want := map[int]string{1: "ping", 2: "move x=%u"}
	if !reflect.DeepEqual(messages, want) {
		t.Errorf("messages = %v, want %v", messages, want)
	}
	if got := doc["commands"].([]int); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("commands = %v, want [2]", got)
	}
	if got := doc["responses"].([]int); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("responses = %v, want [1]", got)
	}
}

func TestUpdateSchemaRequiresFinalize(t *testing.T) {
	r := New(testBaseline)
	if err := r.UpdateSchema(make(map[string]any)); err == nil {
		t.Error("UpdateSchema before AssignIdentifiers expected error")
	}
}
