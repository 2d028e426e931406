package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader("Sure! ```json\n{\"goal\": \"hotpot night\"}\n```"))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"extract"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := Execute(); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output %q: %v", out.String(), err)
	}
	if got["goal"] != "hotpot night" {
		t.Fatalf("got %v", got)
	}
}

func TestParseRoomID(t *testing.T) {
	if id, err := parseRoomID("42"); err != nil || id != 42 {
		t.Fatalf("parseRoomID(42) = %d, %v", id, err)
	}
	if _, err := parseRoomID("abc"); err == nil {
		t.Fatal("expected error for non-integer room id")
	}
}
