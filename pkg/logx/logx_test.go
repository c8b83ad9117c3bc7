package logx

import "testing"

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	SetDebugEnabled(false)
	SetDebugDomains(nil)

	if IsDebugEnabledForDomain("evaluator") {
		t.Fatal("expected debug disabled")
	}
}

func TestDebugRespectsDomainFilter(t *testing.T) {
	SetDebugEnabled(true)
	defer SetDebugEnabled(false)

	SetDebugDomains([]string{"evaluator"})
	defer SetDebugDomains(nil)

	if !IsDebugEnabledForDomain("evaluator") {
		t.Fatal("expected evaluator domain enabled")
	}
	if IsDebugEnabledForDomain("stats") {
		t.Fatal("expected stats domain disabled")
	}
}

func TestDebugAllDomainsWhenFilterEmpty(t *testing.T) {
	SetDebugEnabled(true)
	defer SetDebugEnabled(false)

	SetDebugDomains(nil)

	if !IsDebugEnabledForDomain("anything") {
		t.Fatal("expected all domains enabled when no filter set")
	}
}

func TestLoggerComponentName(t *testing.T) {
	l := NewLogger("csvexport")
	if l.Component() != "csvexport" {
		t.Fatalf("got %q", l.Component())
	}
}
