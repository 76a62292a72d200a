package env

import "testing"

func TestGetFallsBackWhenUnsetOrBlank(t *testing.T) {
	if got := Get("AMBERWAY_ENV_TEST_MISSING", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("AMBERWAY_ENV_TEST_BLANK", "")
	if got := Get("AMBERWAY_ENV_TEST_BLANK", "console"); got != "console" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}

	t.Setenv("AMBERWAY_ENV_TEST_SET", "console")
	if got := Get("AMBERWAY_ENV_TEST_SET", "json"); got != "console" {
		t.Fatalf("expected set value, got %q", got)
	}
}
