package i18n

import "testing"

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("EN-gb") != "en" {
		t.Fatalf("expected en for EN-gb")
	}
	if DetectLanguage("fr-FR,en;q=0.8") != "en" {
		t.Fatalf("expected first supported language")
	}
	if DetectLanguage("fr-FR,fr;q=0.8") != "es" {
		t.Fatalf("expected es fallback")
	}
	if DetectLanguage("") != "es" {
		t.Fatalf("expected default es")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("es", "required") != "Obligatorio" {
		t.Fatalf("expected Obligatorio")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to es translation
	if T("de", "status_paid") != "Pagada" {
		t.Fatalf("expected es fallback for de lang")
	}
}

func TestLocalize(t *testing.T) {
	got := Localize("en", map[string]string{"email": "invalid_email"})
	if got["email"] != "Invalid email" {
		t.Fatalf("unexpected %v", got)
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for code := range messages[LangES] {
		if _, ok := messages[LangEN][code]; !ok {
			t.Errorf("missing en message for %q", code)
		}
	}
	for code := range messages[LangEN] {
		if _, ok := messages[LangES][code]; !ok {
			t.Errorf("missing es message for %q", code)
		}
	}
}
