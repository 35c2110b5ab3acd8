package config

import "testing"

func TestStringFallback(t *testing.T) {
	if got := String("CLINICFLOW_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("CLINICFLOW_TEST_SET", "value")
	if got := String("CLINICFLOW_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestRequiredString(t *testing.T) {
	if _, err := RequiredString("CLINICFLOW_TEST_MISSING"); err == nil {
		t.Fatal("expected error for missing var")
	}
	t.Setenv("CLINICFLOW_TEST_PRESENT", "x")
	v, err := RequiredString("CLINICFLOW_TEST_PRESENT")
	if err != nil || v != "x" {
		t.Fatalf("unexpected result: %q, %v", v, err)
	}
}

func TestInt(t *testing.T) {
	if got := Int("CLINICFLOW_TEST_INT_UNSET", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	t.Setenv("CLINICFLOW_TEST_INT", "42")
	if got := Int("CLINICFLOW_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("CLINICFLOW_TEST_INT_BAD", "not-a-number")
	if got := Int("CLINICFLOW_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("bad value should fall back, got %d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("CLINICFLOW_TEST_BOOL", "true")
	if !Bool("CLINICFLOW_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("CLINICFLOW_TEST_BOOL_BAD", "maybe")
	if !Bool("CLINICFLOW_TEST_BOOL_BAD", true) {
		t.Fatal("bad value should fall back")
	}
}

func TestPort(t *testing.T) {
	p, err := Port("CLINICFLOW_TEST_PORT_UNSET", "8080")
	if err != nil || p != "8080" {
		t.Fatalf("unexpected: %q, %v", p, err)
	}
	t.Setenv("CLINICFLOW_TEST_PORT_BAD", "notaport")
	if _, err := Port("CLINICFLOW_TEST_PORT_BAD", "8080"); err == nil {
		t.Fatal("expected error for invalid port")
	}
}
