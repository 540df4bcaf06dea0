package chat

import (
	"strings"
	"testing"
)

func TestIDGeneratorUnique(t *testing.T) {
	g := NewIDGenerator()
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 10000; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("duplicate id %s after %d calls", id, i)
		}
		seen[id] = true
		if !strings.HasPrefix(id, g.Instance()+"-") {
			t.Fatalf("id %s lacks instance prefix", id)
		}
		if id <= prev {
			t.Fatalf("id %s does not sort after %s", id, prev)
		}
		prev = id
	}
}

func TestIDGeneratorInstances(t *testing.T) {
	a, b := NewIDGenerator(), NewIDGenerator()
	if a.Instance() == b.Instance() {
		t.Fatal("instances should differ")
	}
	if len(a.Instance()) != 12 {
		t.Fatalf("unexpected instance %q", a.Instance())
	}
}
