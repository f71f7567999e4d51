package diagnostics

import "strings"

const switchToJBR = "Switch to JetBrains Runtime (JBR) which has better compatibility with PeerBanHelper on Windows. "

// Recommendation maps runtime vendors containing every Match substring to Text.
type Recommendation struct {
	Match []string
	Text  string
}

// recommendations is evaluated top-down; the first row whose substrings all
// appear in the vendor wins.
var recommendations = []Recommendation{
	{
		Match: []string{"JetBrains"},
		Text:  "Consider updating to the latest JetBrains Runtime (JBR) version. Check https://github.com/JetBrains/JetBrainsRuntime/releases for newer versions.",
	},
	{
		Match: []string{"Eclipse", "Adoptium"},
		Text:  switchToJBR + "Eclipse Adoptium (Temurin) may experience awt.dll related crashes.",
	},
	{
		Match: []string{"Azul"},
		Text:  switchToJBR + "Azul Zulu may experience graphics-related crashes.",
	},
	{
		Match: []string{"BellSoft"},
		Text:  switchToJBR + "BellSoft Liberica may experience compatibility issues.",
	},
	{
		Match: []string{"Oracle"},
		Text:  switchToJBR + "Oracle/OpenJDK may lack necessary patches for GUI stability.",
	},
	{
		Match: []string{"OpenJDK"},
		Text:  switchToJBR + "Oracle/OpenJDK may lack necessary patches for GUI stability.",
	},
	{
		Match: []string{"gccgo"},
		Text:  "Rebuild with the standard gc toolchain. gccgo ships an older runtime without recent crash fixes.",
	},
	{
		Match: []string{"gc"},
		Text:  "Upgrade to the latest Go patch release and review cgo or unsafe code in native dependencies.",
	},
}

// Recommend returns the recommendation for a runtime vendor string.
func Recommend(vendor string) string {
	for _, r := range recommendations {
		if matchesAll(vendor, r.Match) {
			return r.Text
		}
	}
	return switchToJBR + "Unknown JVM vendor (" + vendor + ") may not include necessary patches."
}

func matchesAll(vendor string, subs []string) bool {
	if len(subs) == 0 {
		return false
	}
	for _, s := range subs {
		if !strings.Contains(vendor, s) {
			return false
		}
	}
	return true
}
