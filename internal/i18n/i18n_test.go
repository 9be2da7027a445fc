package i18n

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLocalesShareKeys(t *testing.T) {
	i, err := New("en")
	if err != nil {
		t.Fatal(err)
	}

	en := i.languages["en"]
	for _, lang := range i.GetSupportedLanguages() {
		for key := range en {
			if _, ok := i.languages[lang][key]; !ok {
				t.Errorf("%s is missing %q", lang, key)
			}
		}
	}
}

func TestTranslateFallbacks(t *testing.T) {
	i, err := New("en")
	if err != nil {
		t.Fatal(err)
	}

	if got := i.T("ru", KeyAnonymous); got != "Аноним" {
		t.Errorf("ru anonymous = %q", got)
	}
	if got := i.T("xx", KeyAnonymous); got != "Anonymous" {
		t.Errorf("unknown language should fall back to en, got %q", got)
	}
	if got := i.T("en", "no.such.key"); got != "no.such.key" {
		t.Errorf("missing key = %q", got)
	}
	if got := i.Tf("en", KeyGameWon, 2048); got != "You reached 2048! Keep going." {
		t.Errorf("Tf = %q", got)
	}
}

func TestNewRejectsMissingDefault(t *testing.T) {
	if _, err := New("tlh"); err == nil {
		t.Error("New accepted a default language without a locale")
	}
}

func TestDetectLanguage(t *testing.T) {
	i, err := New("en")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"ru-RU,ru;q=0.9,en;q=0.8", "ru"},
		{"zh-TW,zh;q=0.9", "zh-CN"},
		{"fr-FR, de;q=0.5", "en"},
		{"*", "en"},
	}
	for _, tt := range tests {
		if got := i.DetectLanguage(tt.header); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	i, err := New("en")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.Use(Middleware(i))
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"lang": GetLanguage(c)})
	})

	get := func(target string, header http.Header) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		for k, v := range header {
			req.Header[k] = v
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		return body["lang"]
	}

	if got := get("/?lang=ru", nil); got != "ru" {
		t.Errorf("query param: %q", got)
	}
	if got := get("/", http.Header{"Cookie": {"lang=zh-CN"}}); got != "zh-CN" {
		t.Errorf("cookie: %q", got)
	}
	if got := get("/", http.Header{"Accept-Language": {"ru"}}); got != "ru" {
		t.Errorf("header: %q", got)
	}
	if got := get("/?lang=xx", nil); got != "en" {
		t.Errorf("unsupported query param: %q", got)
	}
}
