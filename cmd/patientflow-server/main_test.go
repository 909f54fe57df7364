package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func subcommands(cmds []*cobra.Command) map[string]bool {
	out := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		out[c.Name()] = true
	}
	return out
}

func TestParseID(t *testing.T) {
	if _, err := parseID(" 3f0c2b7e-8f2d-4b7e-9a51-0c6c1d2e3f40 ", "hospital"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := parseID("general-hospital", "hospital"); err == nil {
		t.Fatal("expected error for non-uuid id")
	}
}

func TestNewLogger_Level(t *testing.T) {
	if got := newLogger("development").GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("development level = %v, want debug", got)
	}
	if got := newLogger("production").GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("production level = %v, want info", got)
	}
}

func TestCommandTree(t *testing.T) {
	for _, cmd := range []struct {
		name string
		subs []string
	}{
		{"migrate", []string{"up", "status"}},
		{"hospital", []string{"onboard"}},
		{"department", []string{"list"}},
	} {
		var found map[string]bool
		switch cmd.name {
		case "migrate":
			found = subcommands(migrateCmd().Commands())
		case "hospital":
			found = subcommands(hospitalCmd().Commands())
		case "department":
			found = subcommands(departmentCmd().Commands())
		}
		for _, s := range cmd.subs {
			if !found[s] {
				t.Errorf("%s is missing subcommand %s", cmd.name, s)
			}
		}
	}
}
