package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
)

const validFlow = `{
  "IVRConfiguration": [
    {
      "GeneralSettingValues": [
        {"SettingId": 15, "SettingnKey": "LanguageList", "SettingValue": "[{\"LanguageCode\":1,\"LanguageName\":\"English\",\"TTSLanguageCode\":\"en-US\",\"STTLanguageCode\":\"en-US\",\"TTSVoiceNameBuiltIn\":\"callie\",\"TTSVoiceNameCloud\":\"en-US-Wavenet-A\"},{\"LanguageCode\":2,\"LanguageName\":\"Hebrew\",\"TTSLanguageCode\":\"he-IL\",\"STTLanguageCode\":\"he-IL\",\"TTSVoiceNameBuiltIn\":\"carmel\",\"TTSVoiceNameCloud\":\"he-IL-Wavenet-B\"}]"},
        {"SettingId": 6, "SettingnKey": "IVRAvailablitySchedule", "SettingValue": "{\"SUN\":{\"From\":\"\",\"To\":\"\"},\"MON\":{\"From\":\"9:00AM\",\"To\":\"5:00PM\"}}"},
        {"SettingId": 7, "SettingnKey": "IVRUnavailablityDates", "SettingValue": "[\"12252026\",\"01012027\"]"},
        {"SettingId": 8, "SettingnKey": "IVRUnavailablityAudio", "SettingValue": "closed.wav"},
        {"SettingId": 14, "SettingnKey": "STTResponseField", "SettingValue": "transcription"}
      ],
      "IVRProcessFlow": [
        {"Id": 1000, "Name": "welcome", "OpCode": 10, "IsStart": true, "VoiceFileId": "welcome.wav",
         "Edges": [{"TargetId": 1001}]},
        {"Id": 1001, "Name": "menu", "OpCode": 30, "ValidKeys": "1,2", "InputTimeLimit": 10, "TagName": "MainMenuSelection",
         "Edges": [{"TargetId": 1002, "InputKeys": "1"}, {"TargetId": 1003, "InputKeys": "2"}]},
        {"Id": 1002, "Name": "auth", "OpCode": 111, "APIId": 10,
         "Edges": [{"TargetId": 1003, "InputKeys": "S"}, {"TargetId": 1003, "InputKeys": "F"}]},
        {"Id": 1003, "Name": "bye", "OpCode": 200, "Edges": []}
      ]
    }
  ]
}`

const validCatalog = `{
  "result": [
    {"APIId": 10, "Method": "POST", "URL": "https://api.example.com/login",
     "ContentType": "application/json",
     "Inputs": [{"Name": "email", "Value": "{{email}}", "Placement": "BODY", "ValueSource": "dynamic"}],
     "Outputs": [{"TagName": "Access_token", "JSONField": "token"}]}
  ]
}`

const validAgents = `{
  "QueueName": "support@default",
  "Agents": [
    {"Extension": "101", "Name": "Dana", "IsAgent": true},
    {"Extension": "999", "Name": "Sam", "IsAgent": false}
  ]
}`

const validRecordings = `{
  "RecordingProfiles": [
    {"RecordingTypeId": 1, "Name": "incident", "MaxDuration": 60, "FilenamePrefix": "incident"}
  ]
}`

// writeFixtures lays the documents out in a temp dir and returns the paths.
func writeFixtures(t *testing.T, flow, catalog string) Paths {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
		return p
	}

	return Paths{
		Flow:       write("ivrconfig.json", flow),
		Catalog:    write("webapiconfig.json", catalog),
		Agents:     write("agents.json", validAgents),
		Recordings: write("recordings.json", validRecordings),
	}
}

func TestNew_ValidConfig(t *testing.T) {
	reg, err := New(writeFixtures(t, validFlow, validCatalog), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snap := reg.Current()

	if snap.StartNode() == nil || snap.StartNode().ID != 1000 {
		t.Fatalf("start node = %+v, want id 1000", snap.StartNode())
	}
	if snap.NodeCount() != 4 {
		t.Errorf("node count = %d, want 4", snap.NodeCount())
	}

	node, ok := snap.Node(1001)
	if !ok {
		t.Fatal("node 1001 not indexed")
	}
	if node.OpCode != domain.OpPlayCollectDigit || node.TagName != "MainMenuSelection" {
		t.Errorf("node 1001 decoded wrong: %+v", node)
	}

	api, ok := snap.API(10)
	if !ok {
		t.Fatal("api 10 not indexed")
	}
	if api.Method != "POST" || len(api.Outputs) != 1 {
		t.Errorf("api 10 decoded wrong: %+v", api)
	}

	lang, ok := snap.Language(2)
	if !ok || lang.LanguageName != "Hebrew" || lang.TTSVoiceNameCloud != "he-IL-Wavenet-B" {
		t.Errorf("language 2 = %+v", lang)
	}

	if w, ok := snap.ScheduleWindow("MON"); !ok || w.From != "9:00AM" {
		t.Errorf("MON window = %+v, %v", w, ok)
	}
	if !snap.IsUnavailableDate("12252026") {
		t.Error("12252026 should be an unavailable date")
	}
	if snap.UnavailabilityAudio() != "closed.wav" {
		t.Errorf("unavailability audio = %q", snap.UnavailabilityAudio())
	}
	if snap.STTResponseField() != "transcription" {
		t.Errorf("stt field = %q", snap.STTResponseField())
	}

	if got := snap.QueueName("fallback"); got != "support@default" {
		t.Errorf("queue = %q", got)
	}
	if len(snap.Agents()) != 2 {
		t.Errorf("agents = %d, want 2", len(snap.Agents()))
	}
	if rec, ok := snap.Recording(1); !ok || rec.MaxDuration != 60 {
		t.Errorf("recording profile 1 = %+v, %v", rec, ok)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		flow    string
		catalog string
		code    apperrors.Code
	}{
		{
			name: "no start node",
			flow: `{"IVRConfiguration":[{"IVRProcessFlow":[
				{"Id": 1, "OpCode": 200, "Edges": []}]}]}`,
			catalog: validCatalog,
			code:    apperrors.CodeMissingStartNode,
		},
		{
			name: "two start nodes",
			flow: `{"IVRConfiguration":[{"IVRProcessFlow":[
				{"Id": 1, "OpCode": 200, "IsStart": true, "Edges": []},
				{"Id": 2, "OpCode": 200, "IsStart": true, "Edges": []}]}]}`,
			catalog: validCatalog,
			code:    apperrors.CodeConfigParse,
		},
		{
			name: "unresolved edge target",
			flow: `{"IVRConfiguration":[{"IVRProcessFlow":[
				{"Id": 1, "OpCode": 10, "IsStart": true, "Edges": [{"TargetId": 99}]}]}]}`,
			catalog: validCatalog,
			code:    apperrors.CodeUnresolvedEdge,
		},
		{
			name: "duplicate node id",
			flow: `{"IVRConfiguration":[{"IVRProcessFlow":[
				{"Id": 1, "OpCode": 10, "IsStart": true, "Edges": []},
				{"Id": 1, "OpCode": 200, "Edges": []}]}]}`,
			catalog: validCatalog,
			code:    apperrors.CodeDuplicateNode,
		},
		{
			name: "unknown op code",
			flow: `{"IVRConfiguration":[{"IVRProcessFlow":[
				{"Id": 1, "OpCode": 77, "IsStart": true, "Edges": []}]}]}`,
			catalog: validCatalog,
			code:    apperrors.CodeConfigParse,
		},
		{
			name: "node references missing api",
			flow: `{"IVRConfiguration":[{"IVRProcessFlow":[
				{"Id": 1, "OpCode": 111, "APIId": 404, "IsStart": true, "Edges": []}]}]}`,
			catalog: validCatalog,
			code:    apperrors.CodeConfigParse,
		},
		{
			name: "transcription node references missing api",
			flow: `{"IVRConfiguration":[{"IVRProcessFlow":[
				{"Id": 1, "OpCode": 341, "APIId": 404, "IsStart": true, "Edges": []}]}]}`,
			catalog: validCatalog,
			code:    apperrors.CodeConfigParse,
		},
		{
			name:    "malformed flow JSON",
			flow:    `{not json`,
			catalog: validCatalog,
			code:    apperrors.CodeConfigParse,
		},
		{
			name:    "empty flow",
			flow:    `{"IVRConfiguration":[]}`,
			catalog: validCatalog,
			code:    apperrors.CodeConfigParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(writeFixtures(t, tt.flow, tt.catalog), nil)
			if err == nil {
				t.Fatal("New should have failed")
			}
			if got := apperrors.CodeOf(err); got != tt.code {
				t.Errorf("error code = %s, want %s (err: %v)", got, tt.code, err)
			}
		})
	}
}

func TestReload(t *testing.T) {
	paths := writeFixtures(t, validFlow, validCatalog)
	reg, err := New(paths, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := reg.Current()

	// A bad reload keeps the old snapshot.
	if err := os.WriteFile(paths.Flow, []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := reg.Reload(); err == nil {
		t.Fatal("Reload should reject malformed config")
	}
	if reg.Current() != before {
		t.Error("failed reload must keep the previous snapshot")
	}

	// A good reload swaps it.
	if err := os.WriteFile(paths.Flow, []byte(validFlow), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reg.Current() == before {
		t.Error("successful reload must install a fresh snapshot")
	}
}
