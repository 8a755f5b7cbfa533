package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/config"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/internal/platform/resource"
	"github.com/ehr/auxcare/internal/sandbox"
)

func startSandbox(t *testing.T) {
	t.Helper()
	store := sandbox.NewMemoryStore()
	cfg := sandbox.SeedConfig{Auxiliaries: 1, Patients: 4, Rooms: 3, Floors: 1, Occupied: 1, Seed: 1}
	if _, err := sandbox.NewSeeder(cfg).Seed(context.Background(), store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := httptest.NewServer(sandbox.NewServer(store, sandbox.Options{}, zerolog.Nop()))
	t.Cleanup(srv.Close)

	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string]bool{"login": false, "rooms": false, "patient": false, "care": false, "watch": false, "sandbox": false}
	for _, c := range newRootCmd().Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRoomsCmd_PrintsRooms(t *testing.T) {
	startSandbox(t)

	out, err := execute(t, "rooms", "--id", "42", "--password", sandbox.DefaultPassword)
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	var rooms []room.Room
	if err := json.Unmarshal([]byte(out), &rooms); err != nil {
		t.Fatalf("output is not a room list: %v\n%s", err, out)
	}
	if len(rooms) != 3 || len(room.AssignedPatients(rooms)) != 1 {
		t.Errorf("unexpected rooms %+v", rooms)
	}
}

func TestLoginCmd_RejectsBadPassword(t *testing.T) {
	startSandbox(t)

	_, err := execute(t, "login", "--id", "42", "--password", "wrong")
	if err == nil || !strings.Contains(err.Error(), "invalid_credentials") {
		t.Errorf("expected invalid credentials error, got %v", err)
	}
}

func TestPatientGetCmd_NotFoundPrintsEmpty(t *testing.T) {
	startSandbox(t)

	out, err := execute(t, "patient", "get", "999999", "--id", "42", "--password", sandbox.DefaultPassword)
	if err != nil {
		t.Fatalf("patient get: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected empty result, got %q", out)
	}

	if _, err := execute(t, "patient", "get", "abc", "--id", "42"); err == nil {
		t.Error("expected error for a non-numeric historial number")
	}
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	if err := printSnapshot(&buf, resource.Succeeded([]int{1, 2}).Snapshot("x")); err != nil {
		t.Fatal(err)
	}
	if strings.Join(strings.Fields(buf.String()), "") != "[1,2]" {
		t.Errorf("unexpected output %q", buf.String())
	}

	err := printSnapshot(&buf, resource.Failed[int](resource.Error, errors.New("boom")).Snapshot("x"))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected error carrying the cause, got %v", err)
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{Env: "production", LogLevel: "warn"}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output %q", buf.String())
	}

	if lvl := newLogger(&config.Config{LogLevel: "nonsense"}, &buf).GetLevel(); lvl != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %s", lvl)
	}
}
