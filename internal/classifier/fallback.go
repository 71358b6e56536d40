package classifier

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// fallbackKey doubles as the English template.
const fallbackKey = "ALERT: %s at %s"

var fallbackCatalog = newFallbackCatalog()

func newFallbackCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	_ = b.SetString(language.English, fallbackKey, "ALERT: %s at %s")
	_ = b.SetString(language.Spanish, fallbackKey, "ALERTA: %s en %s")
	return b
}

type fallbackFormatter struct {
	printer *message.Printer
}

func newFallbackFormatter(lang string) *fallbackFormatter {
	return &fallbackFormatter{
		printer: message.NewPrinter(matchLanguage(lang), message.Catalog(fallbackCatalog)),
	}
}

func (f *fallbackFormatter) format(incident, location string) string {
	return f.printer.Sprintf(fallbackKey, incident, location)
}

// matchLanguage maps a configured language onto one the catalog supports.
func matchLanguage(lang string) language.Tag {
	supported := fallbackCatalog.Languages()
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, confidence := language.NewMatcher(supported).Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supported[idx]
}
