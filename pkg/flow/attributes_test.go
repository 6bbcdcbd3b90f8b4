package flow

import "testing"

func TestAttributeMapGetBool(t *testing.T) {
	m := NewAttributeMap()
	m.Put("flag", true)
	m.Put("text", "true")
	m.Put("off", "false")
	m.Put("junk", "not-a-bool")
	m.Put("number", 7)

	if b, ok := m.GetBool("flag"); !ok || !b {
		t.Fatalf("GetBool(flag) = %v, %v", b, ok)
	}
	if b, ok := m.GetBool("text"); !ok || !b {
		t.Fatalf("GetBool(text) = %v, %v", b, ok)
	}
	if b, ok := m.GetBool("off"); !ok || b {
		t.Fatalf("GetBool(off) = %v, %v", b, ok)
	}
	if _, ok := m.GetBool("junk"); ok {
		t.Fatalf("GetBool(junk) should not parse")
	}
	if _, ok := m.GetBool("number"); ok {
		t.Fatalf("GetBool(number) should not parse")
	}
	if _, ok := m.GetBool("missing"); ok {
		t.Fatalf("GetBool(missing) should report absence")
	}
}

func TestAttributeMapRemove(t *testing.T) {
	m := NewAttributeMap()
	m.Put("key", "value")

	if !m.Contains("key") {
		t.Fatalf("expected key to be present")
	}
	v, ok := m.Remove("key")
	if !ok || v != "value" {
		t.Fatalf("Remove() = %v, %v", v, ok)
	}
	if m.Contains("key") {
		t.Fatalf("expected key removed")
	}
	if _, ok := m.Remove("key"); ok {
		t.Fatalf("removing a missing key should report absence")
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}
}

func TestAttributeMapGetString(t *testing.T) {
	m := NewAttributeMap()
	m.Put("name", "checkout")
	m.Put("count", 3)

	if s, ok := m.GetString("name"); !ok || s != "checkout" {
		t.Fatalf("GetString(name) = %q, %v", s, ok)
	}
	if _, ok := m.GetString("count"); ok {
		t.Fatalf("GetString(count) should fail for non-strings")
	}
}
