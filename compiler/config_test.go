package compiler_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-lua/compiler"
	werrors "github.com/wippyai/wasm-lua/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wasm2lua.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "edition: luau\nfunctions: [run, step]\nskip_validation: true\n")

	cfg, err := compiler.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := &compiler.Config{
		Edition:        "luau",
		Functions:      []string{"run", "step"},
		SkipValidation: true,
		Comments:       true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_CommentsOff(t *testing.T) {
	cfg, err := compiler.LoadConfig(writeConfig(t, "comments: false\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Comments {
		t.Error("comments should be disabled")
	}
	if cfg.Edition != "luajit" {
		t.Errorf("edition = %q, want default luajit", cfg.Edition)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := compiler.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	var e *werrors.Error
	if !errors.As(err, &e) || e.Phase != werrors.PhaseLoad || e.Kind != werrors.KindIO {
		t.Errorf("missing file: expected load/io, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: cause should be os.ErrNotExist: %v", err)
	}

	_, err = compiler.LoadConfig(writeConfig(t, "edition: [unterminated\n"))
	if !errors.As(err, &e) || e.Phase != werrors.PhaseConfig || e.Kind != werrors.KindInvalidInput {
		t.Errorf("bad yaml: expected config/invalid_input, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *compiler.Config
		wantErr bool
	}{
		{"default", compiler.DefaultConfig(), false},
		{"luau", compiler.DefaultConfig().WithEdition("luau"), false},
		{"unknown edition", compiler.DefaultConfig().WithEdition("lua51"), true},
		{"empty function name", compiler.DefaultConfig().WithFunctions("run", ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
