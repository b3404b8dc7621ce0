package sim

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/automax/ivrflow/internal/provider"
)

func TestCall_Transcript(t *testing.T) {
	var buf bytes.Buffer
	call := NewCall(&buf, CallOptions{
		CallerNumber: "15550001234",
		Domain:       "pbx.example.com",
		Digits:       []string{"2", "1234"},
	})

	ctx := context.Background()
	if err := call.Answer(); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := call.Play(ctx, "welcome.wav"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	d, err := call.PlayAndGetDigits(ctx, provider.DigitsParams{PromptFile: "menu.wav", MaxLength: 1})
	if err != nil {
		t.Fatalf("PlayAndGetDigits: %v", err)
	}
	if d != "2" {
		t.Errorf("first entry = %q, want 2", d)
	}
	d, _ = call.ReadDigits(ctx, provider.DigitsParams{MaxLength: 4})
	if d != "1234" {
		t.Errorf("second entry = %q, want 1234", d)
	}
	// Queue exhausted means timeout.
	d, _ = call.ReadDigits(ctx, provider.DigitsParams{MaxLength: 4})
	if d != "" {
		t.Errorf("exhausted entry = %q, want empty", d)
	}

	if err := call.Hangup("NORMAL_CLEARING"); err != nil {
		t.Fatalf("Hangup: %v", err)
	}
	if !call.Hungup() {
		t.Error("Hungup() = false after Hangup")
	}

	out := buf.String()
	for _, want := range []string{
		"ANSWER",
		"PLAY welcome.wav",
		`PROMPT menu.wav -> "2"`,
		"HANGUP NORMAL_CLEARING",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
}

func TestCall_SessionVars(t *testing.T) {
	call := NewCall(&bytes.Buffer{}, CallOptions{
		SessionVars: map[string]string{"cc_last_nodeId": "7001"},
	})
	if got := call.GetSessionVar("cc_last_nodeId"); got != "7001" {
		t.Errorf("GetSessionVar = %q, want 7001", got)
	}
	call.SetSessionVar("Choice", "1")
	vars := call.ExportSessionVars()
	if vars["Choice"] != "1" || vars["cc_last_nodeId"] != "7001" {
		t.Errorf("ExportSessionVars = %v", vars)
	}
}

func TestProvider_Directory(t *testing.T) {
	p := NewProvider(&bytes.Buffer{}, []string{"104"}, map[string]string{"default_gateway": "carrier1"})

	ctx := context.Background()
	ok, err := p.DirectoryExists(ctx, "104", "pbx.example.com")
	if err != nil || !ok {
		t.Errorf("DirectoryExists(104) = %v, %v, want true", ok, err)
	}
	ok, _ = p.DirectoryExists(ctx, "999", "pbx.example.com")
	if ok {
		t.Error("DirectoryExists(999) = true, want false")
	}
	if got := p.GetGlobal("default_gateway"); got != "carrier1" {
		t.Errorf("GetGlobal = %q, want carrier1", got)
	}
}
