package diagnostics

import (
	"strings"
	"testing"
)

func TestRecommend(t *testing.T) {
	t.Parallel()
	tests := []struct {
		vendor   string
		contains string
	}{
		{"JetBrains s.r.o.", "updating to the latest JetBrains Runtime"},
		{"Eclipse Adoptium", "awt.dll"},
		{"Azul Systems, Inc.", "Azul Zulu"},
		{"BellSoft", "Liberica"},
		{"Oracle Corporation", "Oracle/OpenJDK"},
		{"OpenJDK Community", "Oracle/OpenJDK"},
		{"gccgo", "gccgo ships an older runtime"},
		{"gc", "latest Go patch release"},
		{"Amazon.com Inc.", "Unknown JVM vendor (Amazon.com Inc.)"},
	}
	for _, tt := range tests {
		if got := Recommend(tt.vendor); !strings.Contains(got, tt.contains) {
			t.Errorf("Recommend(%q) = %q, want it to contain %q", tt.vendor, got, tt.contains)
		}
	}
}

func TestRecommend_AllSubstringsRequired(t *testing.T) {
	t.Parallel()
	// "Eclipse" alone does not satisfy the Eclipse+Adoptium row.
	if got := Recommend("Eclipse Foundation"); !strings.Contains(got, "Unknown JVM vendor") {
		t.Errorf("Recommend(Eclipse Foundation) = %q", got)
	}
}

func TestRecommend_FirstMatchWins(t *testing.T) {
	t.Parallel()
	// Contains both JetBrains and OpenJDK; JetBrains is listed first.
	if got := Recommend("JetBrains OpenJDK build"); !strings.HasPrefix(got, "Consider updating") {
		t.Errorf("Recommend() = %q", got)
	}
}
