package extract

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	doc := parse(t, spanishPage, "https://Noticias.Example.com/articulo")
	assert.Equal(t, "es", doc.Lang)
	assert.Equal(t, "Prueba", doc.Title)
	assert.Equal(t, "noticias.example.com", doc.Host())
	require.NotNil(t, doc.Root)
}

func TestParseTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), MaxDocumentSize+1)
	_, err := Parse(bytes.NewReader(big), "")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSanitizeRuby(t *testing.T) {
	in := []byte(`<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>`)
	assert.Equal(t, `<ruby>漢字</ruby>`, string(SanitizeRuby(in)))
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("User-Agent"), "Mozilla/5.0") || r.Header.Get("Accept-Language") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(spanishPage))
	}))
	defer srv.Close()

	doc, err := FetchDocument(context.Background(), srv.Client(), srv.URL+"/articulo")
	require.NoError(t, err)
	assert.Equal(t, "es", doc.Lang)
	assert.Equal(t, srv.URL+"/articulo", doc.URL)
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), nil, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
