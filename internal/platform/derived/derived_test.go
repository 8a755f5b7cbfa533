package derived

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type room struct {
	number  int
	patient *int
}

func assignedPatients(rooms []room) []int {
	var out []int
	for _, r := range rooms {
		if r.patient != nil {
			out = append(out, *r.patient)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestSet_StartsEmpty(t *testing.T) {
	s := NewSet[int]()
	if s.Len() != 0 || s.Contains(1) {
		t.Fatal("new set should be empty")
	}
}

func TestAggregate_ReplacesWholesale(t *testing.T) {
	s := NewSet[int]()
	p := Aggregate(s, assignedPatients)

	p([]room{{1, intPtr(3)}, {2, intPtr(4)}})
	if diff := cmp.Diff([]int{3, 4}, Sorted(s)); diff != "" {
		t.Fatalf("first payload (-want +got):\n%s", diff)
	}

	p([]room{{1, intPtr(7)}, {2, nil}})
	if diff := cmp.Diff([]int{7}, Sorted(s)); diff != "" {
		t.Fatalf("stale members survived (-want +got):\n%s", diff)
	}
}

func TestAggregate_EmptyPayloadEmptiesSet(t *testing.T) {
	s := NewSet[int]()
	s.ReplaceAll([]int{1, 2, 3})
	Aggregate(s, assignedPatients)(nil)
	if s.Len() != 0 {
		t.Fatalf("expected empty set, got %v", s.Snapshot())
	}
}

func TestSet_ClearAndSubscribe(t *testing.T) {
	s := NewSet[int]()
	var got [][]int
	cancel := s.Subscribe(func(keys []int) { got = append(got, keys) })

	s.ReplaceAll([]int{5})
	s.Clear()
	cancel()
	s.ReplaceAll([]int{6})

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if diff := cmp.Diff([]int{5}, got[0]); diff != "" {
		t.Errorf("first notification (-want +got):\n%s", diff)
	}
	if len(got[1]) != 0 {
		t.Errorf("clear should notify an empty set, got %v", got[1])
	}
}

func TestForward_SetsAndClear(t *testing.T) {
	v := NewValue[string]()
	if _, ok := v.Get(); ok {
		t.Fatal("new value should be absent")
	}

	Forward(v, func(r room) string { return "room-" + string(rune('0'+r.number)) })(room{number: 2})
	if got, ok := v.Get(); !ok || got != "room-2" {
		t.Fatalf("expected room-2, got %q %v", got, ok)
	}

	v.Clear()
	if _, ok := v.Get(); ok {
		t.Fatal("value should be absent after clear")
	}
}

func TestValue_Subscribe(t *testing.T) {
	v := NewValue[int]()
	var present []bool
	v.Subscribe(func(_ int, ok bool) { present = append(present, ok) })
	v.Set(1)
	v.Clear()
	if diff := cmp.Diff([]bool{true, false}, present); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestChain_RunsInOrderAndSkipsNil(t *testing.T) {
	var order []string
	c := Chain[int](
		func(int) { order = append(order, "a") },
		nil,
		func(int) { order = append(order, "b") },
	)
	c(1)
	if diff := cmp.Diff([]string{"a", "b"}, order); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestIdentity(t *testing.T) {
	v := NewValue[room]()
	Forward(v, Identity[room])(room{number: 4})
	if got, _ := v.Get(); got.number != 4 {
		t.Fatalf("expected room 4, got %+v", got)
	}
}
