package applier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/types"
)

// writeScript drops an executable shell script into a temp dir
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apply.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestExecApplier_CreateOrUpdateRevision(t *testing.T) {
	script := writeScript(t, `
if [ "$1" = "revision" ] && [ "$2" = "staging" ] && [ "$3" = "green" ] && [ "$4" = "app:v2" ]; then
  echo '{"url": "https://green.staging.example.com"}'
  exit 0
fi
exit 1`)

	a := NewExecApplier(script, nil, time.Minute, zerolog.Nop())

	url, err := a.CreateOrUpdateRevision(context.Background(), "staging", types.ColorGreen, "app:v2")
	if err != nil {
		t.Fatalf("revision failed: %v", err)
	}
	if url != "https://green.staging.example.com" {
		t.Errorf("unexpected url: %s", url)
	}
}

func TestExecApplier_RevisionMissingURL(t *testing.T) {
	script := writeScript(t, `echo '{}'`)

	a := NewExecApplier(script, nil, time.Minute, zerolog.Nop())

	if _, err := a.CreateOrUpdateRevision(context.Background(), "staging", types.ColorGreen, "app:v2"); err == nil {
		t.Fatal("expected error for missing url field")
	}
}

func TestExecApplier_SetTrafficSplitArguments(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, `echo "$@" > `+out)

	a := NewExecApplier(script, nil, time.Minute, zerolog.Nop())

	split := types.TrafficSplit{types.ColorGreen: 10, types.ColorBlue: 90}
	if err := a.SetTrafficSplit(context.Background(), "prod", split); err != nil {
		t.Fatalf("traffic failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}
	got := string(data)
	want := "traffic prod blue=90 green=10\n"
	if got != want {
		t.Errorf("expected args %q, got %q", want, got)
	}
}

func TestExecApplier_NonZeroExitIsFatal(t *testing.T) {
	script := writeScript(t, `echo "split rejected" >&2; exit 3`)

	a := NewExecApplier(script, nil, time.Minute, zerolog.Nop())

	err := a.SetTrafficSplit(context.Background(), "prod", types.AllTo(types.ColorBlue))
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}

func TestExecApplier_TimeoutAborts(t *testing.T) {
	script := writeScript(t, `sleep 10`)

	a := NewExecApplier(script, nil, 100*time.Millisecond, zerolog.Nop())

	start := time.Now()
	err := a.Decommission(context.Background(), "prod", types.ColorBlue)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout did not abort the command promptly")
	}
}
