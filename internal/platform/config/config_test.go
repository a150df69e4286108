package config

import (
	"testing"
	"time"

	kit "warden/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	root := New()
	pipe := root.Prefix("PIPELINE_")
	if got := pipe.key("QUEUE_SIZE"); got != "PIPELINE_QUEUE_SIZE" {
		t.Fatalf("key() = %q, want %q", got, "PIPELINE_QUEUE_SIZE")
	}
	// nested prefix
	pipeLog := pipe.Prefix("LOG_")
	if got := pipeLog.key("LEVEL"); got != "PIPELINE_LOG_LEVEL" {
		t.Fatalf("nested key() = %q, want %q", got, "PIPELINE_LOG_LEVEL")
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_NAME", "  warden ")
	if got := c.MustString("NAME"); got != "warden" {
		t.Fatalf("MustString = %q, want %q", got, "warden")
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMustInt(t *testing.T) {
	c := New().Prefix("SVC_")
	t.Setenv("SVC_WORKERS", "  8 ")
	if got := c.MustInt("WORKERS"); got != 8 {
		t.Fatalf("MustInt = %d, want %d", got, 8)
	}
	kit.MustPanic(t, func() { _ = c.MustInt("MISSING") })
	t.Setenv("SVC_BAD", "x")
	kit.MustPanic(t, func() { _ = c.MustInt("BAD") })
}

func TestMustPort(t *testing.T) {
	c := New().Prefix("OPS_")
	t.Setenv("OPS_PORT", "9090")
	if got := c.MustPort("PORT"); got != ":9090" {
		t.Fatalf("MustPort = %q, want %q", got, ":9090")
	}
	t.Setenv("OPS_BAD", "70000")
	kit.MustPanic(t, func() { _ = c.MustPort("BAD") })
}

func TestRequire(t *testing.T) {
	c := New().Prefix("REQ_")
	t.Setenv("REQ_A", "1")
	t.Setenv("REQ_B", "2")
	kit.MustNotPanic(t, func() { c.Require("A", "B") })
	kit.MustPanic(t, func() { c.Require("A", "MISSING") })
}

func TestMayDefaults(t *testing.T) {
	c := New().Prefix("MAY_")

	if got := c.MayString("S", "fallback"); got != "fallback" {
		t.Fatalf("MayString default = %q", got)
	}
	if got := c.MayInt("I", 42); got != 42 {
		t.Fatalf("MayInt default = %d", got)
	}
	if got := c.MayFloat64("F", 0.5); got != 0.5 {
		t.Fatalf("MayFloat64 default = %v", got)
	}
	if got := c.MayBool("B", true); !got {
		t.Fatalf("MayBool default = %v", got)
	}
	if got := c.MayDuration("D", 10*time.Second); got != 10*time.Second {
		t.Fatalf("MayDuration default = %v", got)
	}
}

func TestMayParsesSetValues(t *testing.T) {
	c := New().Prefix("MAY_")
	t.Setenv("MAY_I", "7")
	t.Setenv("MAY_F", "0.25")
	t.Setenv("MAY_B", "false")
	t.Setenv("MAY_D", "250ms")

	if got := c.MayInt("I", 42); got != 7 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayFloat64("F", 0.5); got != 0.25 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if got := c.MayBool("B", true); got {
		t.Fatalf("MayBool = %v", got)
	}
	if got := c.MayDuration("D", time.Second); got != 250*time.Millisecond {
		t.Fatalf("MayDuration = %v", got)
	}
}

func TestMayInvalidValuesFallBack(t *testing.T) {
	c := New().Prefix("MAY_")
	t.Setenv("MAY_I", "nope")
	t.Setenv("MAY_D", "soon")

	if got := c.MayInt("I", 42); got != 42 {
		t.Fatalf("MayInt fallback = %d", got)
	}
	if got := c.MayDuration("D", time.Second); got != time.Second {
		t.Fatalf("MayDuration fallback = %v", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CSV_")
	if got := c.MayCSV("LIST", []string{"a"}); len(got) != 1 || got[0] != "a" {
		t.Fatalf("MayCSV default = %v", got)
	}
	t.Setenv("CSV_LIST", " one, two ,,three ")
	got := c.MayCSV("LIST", nil)
	if len(got) != 3 || got[0] != "one" || got[1] != "two" || got[2] != "three" {
		t.Fatalf("MayCSV = %v", got)
	}
	t.Setenv("CSV_EMPTY", " , ,")
	if got := c.MayCSV("EMPTY", []string{"def"}); len(got) != 1 || got[0] != "def" {
		t.Fatalf("MayCSV all-blank = %v", got)
	}
}
