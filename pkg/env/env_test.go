package env

import "testing"

func TestGetFallsBack(t *testing.T) {
	t.Setenv("TASKRENT_ENV_TEST", "")
	if got := Get("TASKRENT_ENV_TEST", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("TASKRENT_ENV_TEST", "set")
	if got := Get("TASKRENT_ENV_TEST", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestInstanceIDPrecedence(t *testing.T) {
	t.Setenv("TASKRENT_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	if got := InstanceID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
	t.Setenv("DYNO", "web.1")
	if got := InstanceID(); got != "web.1" {
		t.Fatalf("expected web.1, got %q", got)
	}
	t.Setenv("TASKRENT_INSTANCE_ID", "api-7")
	if got := InstanceID(); got != "api-7" {
		t.Fatalf("expected api-7, got %q", got)
	}
}
