package recovery

import "testing"

func TestParseRecoveryArg(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		args    []string
		wantPID string
		wantOK  bool
	}{
		{"absent", []string{"--verbose", "serve"}, "", false},
		{"empty", nil, "", false},
		{"well formed", []string{"crashRecovery:1234"}, "1234", true},
		{"among others", []string{"-c", "x.yaml", "crashRecovery:42"}, "42", true},
		{"two colons", []string{"crashRecovery:1:2"}, "", false},
		{"no colon", []string{"crashRecovery"}, "", false},
		{"empty pid", []string{"crashRecovery:"}, "", false},
		{"blank pid", []string{"crashRecovery:  "}, "", false},
		{"wrong name", []string{"crashRecoveryX:12"}, "", false},
		{"malformed then valid", []string{"crashRecovery:1:2", "crashRecovery:9"}, "9", true},
		{"first valid wins", []string{"crashRecovery:7", "crashRecovery:8"}, "7", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, ok := ParseRecoveryArg(tt.args)
			if pid != tt.wantPID || ok != tt.wantOK {
				t.Errorf("ParseRecoveryArg(%q) = %q, %v; want %q, %v", tt.args, pid, ok, tt.wantPID, tt.wantOK)
			}
		})
	}
}

func TestFormatRecoveryArg(t *testing.T) {
	t.Parallel()
	arg := FormatRecoveryArg("555")
	if arg != "crashRecovery:555" {
		t.Fatalf("FormatRecoveryArg() = %q", arg)
	}
	if pid, ok := ParseRecoveryArg([]string{arg}); !ok || pid != "555" {
		t.Fatalf("round trip failed: %q %v", pid, ok)
	}
}
