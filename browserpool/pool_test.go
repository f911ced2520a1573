package browserpool

import "testing"

func TestDefaultPolicyBlocksImagesFontsMedia(t *testing.T) {
	p := DefaultPolicy()
	if !p.BlockImages || !p.BlockStylesheets || !p.BlockFonts || !p.BlockMedia {
		t.Fatalf("expected default policy to block image/stylesheet/font/media, got %+v", p)
	}
}

func TestEmailHarvestPolicyAdmitsStylesheets(t *testing.T) {
	p := EmailHarvestPolicy()
	if p.BlockStylesheets {
		t.Fatalf("expected email harvest policy to admit stylesheets")
	}
	if !p.BlockImages || !p.BlockFonts || !p.BlockMedia {
		t.Fatalf("expected email harvest policy to still block image/font/media, got %+v", p)
	}
	if !p.BlockThirdParty {
		t.Fatalf("expected email harvest policy to block third-party scripts/XHR/fetch")
	}
}

func TestIsSubResourceRestrictsToScriptXHRFetch(t *testing.T) {
	cases := map[string]bool{
		"script": true, "xhr": true, "fetch": true,
		"document": false, "image": false, "stylesheet": false,
	}
	for rt, want := range cases {
		if got := isSubResource(rt); got != want {
			t.Errorf("isSubResource(%q) = %v, want %v", rt, got, want)
		}
	}
}

func TestRegistrableHostStripsWWWAndLowercases(t *testing.T) {
	cases := map[string]string{
		"https://www.Example.com/path": "example.com",
		"https://ads.tracker.test/x":   "ads.tracker.test",
		"not a url":                    "",
	}
	for raw, want := range cases {
		if got := registrableHost(raw); got != want {
			t.Errorf("registrableHost(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateDegraded:     "degraded",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestIsProtocolErrorRecognizesKnownSignatures(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Target closed", true},
		{"Session not found", true},
		{"frame detached", true},
		{"navigation timeout of 10000ms exceeded", true},
		{"websocket closed before handshake", true},
		{"element not found", false},
		{"invalid selector", false},
	}
	for _, tc := range cases {
		if got := isProtocolError(errString(tc.msg)); got != tc.want {
			t.Errorf("isProtocolError(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
