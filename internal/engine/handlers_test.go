package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/automax/ivrflow/internal/provider/mock"
)

func TestRunCall_CollectDigitsFullInput(t *testing.T) {
	flow := flowDoc(`
		{"Id": 1000, "Name": "pin", "OpCode": 20, "IsStart": true, "VoiceFileId": "pin.wav",
		 "ValidKeys": "0,1,2,3,4,5,6,7,8,9", "InputLength": 4, "InputTimeLimit": 10, "TagName": "Pin",
		 "IsRepetitive": true, "RepeatLimit": 2, "InvalidInputVoiceFileId": "invalid.wav",
		 "Edges": [{"TargetId": 1999, "InputKeys": "#"}, {"TargetId": 1999, "InputKeys": "X"}, {"TargetId": 1999, "InputKeys": "T"}]},
		{"Id": 1999, "Name": "bye", "OpCode": 200, "Edges": []}`, "")

	t.Run("valid on first try", func(t *testing.T) {
		eng, _ := newTestEngine(t, flow, emptyCatalog)
		call := mock.NewCall()
		call.DigitResponses = []string{"1234"}
		if err := eng.RunCall(context.Background(), call); err != nil {
			t.Fatalf("RunCall: %v", err)
		}
		if got := call.SessionVars["Pin"]; got != "1234" {
			t.Errorf("Pin = %q, want %q", got, "1234")
		}
		if hasInvocation(call, "play invalid.wav") {
			t.Error("no retry prompt expected on valid input")
		}
	})

	t.Run("retry then valid", func(t *testing.T) {
		eng, _ := newTestEngine(t, flow, emptyCatalog)
		call := mock.NewCall()
		call.DigitResponses = []string{"12", "5678"}
		if err := eng.RunCall(context.Background(), call); err != nil {
			t.Fatalf("RunCall: %v", err)
		}
		if !hasInvocation(call, "play invalid.wav") {
			t.Errorf("short input must replay the invalid prompt: %v", call.Invocations)
		}
		if got := call.SessionVars["Pin"]; got != "5678" {
			t.Errorf("Pin = %q, want %q", got, "5678")
		}
	})

	t.Run("exhaustion yields invalid token", func(t *testing.T) {
		eng, _ := newTestEngine(t, flow, emptyCatalog)
		call := mock.NewCall()
		call.DigitResponses = []string{"12", "34", "56"} // three bad tries, budget is 1+2
		if err := eng.RunCall(context.Background(), call); err != nil {
			t.Fatalf("RunCall: %v", err)
		}
		if _, ok := call.SessionVars["Pin"]; ok {
			t.Error("no store write expected after exhaustion")
		}
		if call.HangupCause != causeNormal {
			t.Errorf("hangup cause = %q (X edge should have been taken)", call.HangupCause)
		}
	})
}

func TestRunCall_LanguageSelect(t *testing.T) {
	settings := `[
		{"SettingId": 15, "SettingnKey": "LanguageList", "SettingValue": "[{\"LanguageCode\":1,\"LanguageName\":\"English\",\"TTSLanguageCode\":\"en-US\",\"STTLanguageCode\":\"en-US\",\"TTSVoiceNameBuiltIn\":\"callie\",\"TTSVoiceNameCloud\":\"en-US-Wavenet-A\"},{\"LanguageCode\":2,\"LanguageName\":\"Hebrew\",\"TTSLanguageCode\":\"he-IL\",\"STTLanguageCode\":\"he-IL\",\"TTSVoiceNameBuiltIn\":\"carmel\",\"TTSVoiceNameCloud\":\"he-IL-Wavenet-B\"}]"}
	]`
	flow := flowDoc(`
		{"Id": 1000, "Name": "language", "OpCode": 30, "IsStart": true, "VoiceFileId": "lang.wav",
		 "ValidKeys": "1,2", "InputTimeLimit": 10, "IsLanguageSelect": true,
		 "Edges": [{"TargetId": 1001, "InputKeys": "1"}, {"TargetId": 1001, "InputKeys": "2"}]},
		{"Id": 1001, "Name": "thanks", "OpCode": 330, "DefaultInput": "Shalom",
		 "Edges": [{"TargetId": 1999}]},
		{"Id": 1999, "Name": "bye", "OpCode": 200, "Edges": []}`, settings)

	eng, _ := newTestEngine(t, flow, emptyCatalog)
	call := mock.NewCall()
	call.DigitResponses = []string{"2"}

	if err := eng.RunCall(context.Background(), call); err != nil {
		t.Fatalf("RunCall: %v", err)
	}
	for name, want := range map[string]string{
		"LanguageCode":        "2",
		"LanguageName":        "Hebrew",
		"TTSLanguageCode":     "he-IL",
		"STTLanguageCode":     "he-IL",
		"TTSVoiceNameBuiltIn": "carmel",
		"TTSVoiceNameCloud":   "he-IL-Wavenet-B",
	} {
		if got := call.SessionVars[name]; got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	// The follow-up synthesis speaks with the selected built-in voice.
	if !hasInvocation(call, `speak builtin/carmel "Shalom"`) {
		t.Errorf("synthesis did not use the selected voice: %v", call.Invocations)
	}
}

func TestRunCall_CurlInvokeExposesRawResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"queued": true}`)
	}))
	defer srv.Close()

	catalog := fmt.Sprintf(`{"result": [
		{"APIId": 30, "Method": "POST", "URL": "%s/enqueue", "ContentType": "application/json",
		 "Inputs": [{"Name": "caller", "Value": "{{caller_id_number}}", "Placement": "BODY", "ValueSource": "dynamic"}],
		 "Outputs": []}
	]}`, srv.URL)

	flow := flowDoc(`
		{"Id": 1000, "Name": "enqueue", "OpCode": 112, "IsStart": true, "APIId": 30,
		 "Edges": [{"TargetId": 1999, "InputKeys": "S"}, {"TargetId": 1999, "InputKeys": "F"}]},
		{"Id": 1999, "Name": "bye", "OpCode": 200, "Edges": []}`, "")

	eng, _ := newTestEngine(t, flow, catalog)
	call := mock.NewCall()

	if err := eng.RunCall(context.Background(), call); err != nil {
		t.Fatalf("RunCall: %v", err)
	}
	if got := call.SessionVars["curl_response_code"]; got != "201" {
		t.Errorf("curl_response_code = %q, want %q", got, "201")
	}
	if got := call.SessionVars["curl_response_data"]; got != `{"queued": true}` {
		t.Errorf("curl_response_data = %q", got)
	}
}

func TestRunCall_SpeechToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"transcription": "reset my password", "confidence": 0.93}`)
	}))
	defer srv.Close()

	catalog := fmt.Sprintf(`{"result": [
		{"APIId": 40, "Method": "POST", "URL": "%s/stt", "ContentType": "application/json",
		 "Inputs": [{"Name": "language", "Value": "{{STTLanguageCode}}", "Placement": "BODY", "ValueSource": "dynamic", "DefaultValue": "en-US"}],
		 "Outputs": []}
	]}`, srv.URL)

	settings := `[{"SettingId": 14, "SettingnKey": "STTResponseField", "SettingValue": "transcription"}]`
	flow := flowDoc(`
		{"Id": 1000, "Name": "transcribe", "OpCode": 341, "IsStart": true, "APIId": 40,
		 "DefaultInput": "{{incident_recording}}", "TagName": "IncidentText",
		 "Edges": [{"TargetId": 1999, "InputKeys": "S"}, {"TargetId": 1999, "InputKeys": "F"}]},
		{"Id": 1999, "Name": "bye", "OpCode": 200, "Edges": []}`, settings)

	eng, _ := newTestEngine(t, flow, catalog)
	call := mock.NewCall()

	if err := eng.RunCall(context.Background(), call); err != nil {
		t.Fatalf("RunCall: %v", err)
	}
	if got := call.SessionVars["IncidentText"]; got != "reset my password" {
		t.Errorf("IncidentText = %q, want %q", got, "reset my password")
	}
}

func TestRunCall_ExtensionDial(t *testing.T) {
	flow := flowDoc(`
		{"Id": 1000, "Name": "dial", "OpCode": 105, "IsStart": true, "InputLength": 3, "InputTimeLimit": 10,
		 "Edges": [{"TargetId": 1999, "InputKeys": "S"}, {"TargetId": 1001, "InputKeys": "F"}]},
		{"Id": 1001, "Name": "sorry", "OpCode": 10, "VoiceFileId": "unknown-ext.wav", "Edges": [{"TargetId": 1999}]},
		{"Id": 1999, "Name": "bye", "OpCode": 200, "Edges": []}`, "")

	t.Run("known extension bridges", func(t *testing.T) {
		eng, prov := newTestEngine(t, flow, emptyCatalog)
		prov.Directory["104@pbx.example.com"] = true
		call := mock.NewCall()
		call.DigitResponses = []string{"104"}
		if err := eng.RunCall(context.Background(), call); err != nil {
			t.Fatalf("RunCall: %v", err)
		}
		if !hasInvocation(call, "bridge user/104@pbx.example.com") {
			t.Errorf("bridge missing: %v", call.Invocations)
		}
	})

	t.Run("unknown extension takes the F edge", func(t *testing.T) {
		eng, _ := newTestEngine(t, flow, emptyCatalog)
		call := mock.NewCall()
		call.DigitResponses = []string{"104"}
		if err := eng.RunCall(context.Background(), call); err != nil {
			t.Fatalf("RunCall: %v", err)
		}
		if hasInvocation(call, "bridge ") {
			t.Error("no bridge expected for an unknown extension")
		}
		if !hasInvocation(call, "play unknown-ext.wav") {
			t.Errorf("F edge not taken: %v", call.Invocations)
		}
	})
}
