// Package i18n holds the localized alert and report text.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyFrequentTitle = "crash.frequent.title"
	KeyFrequentBody  = "crash.frequent.body"
	KeyRecoveryTitle = "crash.recovery.title"
	KeyRecoveryBody  = "crash.recovery.body"
	KeyShutdownTitle = "crash.shutdown.title"
	KeyShutdownBody  = "crash.shutdown.body"
)

var supported = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyFrequentTitle: "Frequent crashes detected",
		KeyFrequentBody:  "%[1]d crashes were recorded in the last 24 hours.\n\nRecommendation: %[2]s",
		KeyRecoveryTitle: "%[1]s recovered from a crash",
		KeyRecoveryBody:  "The previous run (PID %[1]s) crashed and was restarted at %[2]s.\nCrash dump: %[3]s\nCrashes in the last 24 hours: %[4]d",
		KeyShutdownTitle: "Unexpected shutdown detected",
		KeyShutdownBody:  "The previous run did not shut down cleanly (detected at %[2]s).\n\nRunning marker:\n%[1]s",
	},
	language.SimplifiedChinese: {
		KeyFrequentTitle: "检测到频繁崩溃",
		KeyFrequentBody:  "过去 24 小时内记录了 %[1]d 次崩溃。\n\n建议：%[2]s",
		KeyRecoveryTitle: "%[1]s 已从崩溃中恢复",
		KeyRecoveryBody:  "上次运行 (PID %[1]s) 崩溃，已于 %[2]s 重新启动。\n崩溃转储：%[3]s\n过去 24 小时崩溃次数：%[4]d",
		KeyShutdownTitle: "检测到意外关闭",
		KeyShutdownBody:  "上次运行未正常关闭（检测时间 %[2]s）。\n\n运行标记：\n%[1]s",
	},
}

// Catalog formats message keys for one locale.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a catalog for locale, matched against the supported languages.
// Unknown or malformed locales fall back to English.
func New(locale string) *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range messages {
		for key, msg := range entries {
			_ = b.SetString(tag, key, msg)
		}
	}

	tag := language.English
	if parsed, err := language.Parse(locale); err == nil {
		matcher := language.NewMatcher(supported)
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = supported[idx]
		}
	}

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}
}

// Language returns the matched language.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Format renders key with positional arguments. Unknown keys are formatted as-is.
func (c *Catalog) Format(key string, args ...any) string {
	return c.printer.Sprintf(key, args...)
}
