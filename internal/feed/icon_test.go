package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// TestParseIconLink はlink要素からアイコンURLを取り出せることを検証する。
func TestParseIconLink(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/")

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "rel=icon の相対URL",
			html: `<html><head><link rel="icon" href="/static/icon.png"></head><body></body></html>`,
			want: "https://example.com/static/icon.png",
		},
		{
			name: "shortcut icon",
			html: `<html><head><link rel="Shortcut Icon" href="https://cdn.example.com/fav.ico"/></head></html>`,
			want: "https://cdn.example.com/fav.ico",
		},
		{
			name: "apple-touch-iconはiconより優先度が低い",
			html: `<head><link rel="apple-touch-icon" href="touch.png"><link rel="icon" href="icon.png"></head>`,
			want: "https://example.com/blog/icon.png",
		},
		{
			name: "apple-touch-iconのみ",
			html: `<head><link rel="apple-touch-icon" href="touch.png"></head>`,
			want: "https://example.com/blog/touch.png",
		},
		{
			name: "body内のlinkは無視",
			html: `<head><title>x</title></head><body><link rel="icon" href="/late.png"></body>`,
			want: "",
		},
		{
			name: "data URLは無視",
			html: `<head><link rel="icon" href="data:image/png;base64,AAAA"></head>`,
			want: "",
		},
		{
			name: "アイコンなし",
			html: `<head><link rel="stylesheet" href="/s.css"></head>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIconLink([]byte(tt.html), base)
			if got != tt.want {
				t.Errorf("期待 %q, 結果 %q", tt.want, got)
			}
		})
	}
}

// TestResolveIcon_FromHTML はサイトのHTMLからアイコンを見つけることを検証する。
func TestResolveIcon_FromHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><link rel="icon" href="/img/icon.svg"></head><body></body></html>`)
	}))
	defer server.Close()

	r := NewIconResolver(&mockClientFactory{}, "", nil)
	got := r.ResolveIcon(context.Background(), server.URL+"/")
	if got != server.URL+"/img/icon.svg" {
		t.Errorf("期待 %q, 結果 %q", server.URL+"/img/icon.svg", got)
	}
}

// TestResolveIcon_FaviconFallback はlink要素がない場合に/favicon.icoを確認することを検証する。
func TestResolveIcon_FaviconFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/favicon.ico":
			w.Header().Set("Content-Type", "image/x-icon")
			w.Write([]byte{0x00, 0x00, 0x01, 0x00})
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>no icon</title></head></html>`)
		}
	}))
	defer server.Close()

	r := NewIconResolver(&mockClientFactory{}, "", nil)
	got := r.ResolveIcon(context.Background(), server.URL+"/blog?page=2")
	if got != server.URL+"/favicon.ico" {
		t.Errorf("期待 %q, 結果 %q", server.URL+"/favicon.ico", got)
	}
}

// TestResolveIcon_NotFound はアイコンが見つからない場合に空文字列を返すことを検証する。
func TestResolveIcon_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "not found page")
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewIconResolver(&mockClientFactory{}, "", nil)
	if got := r.ResolveIcon(context.Background(), server.URL); got != "" {
		t.Errorf("画像でないfaviconは採用しない: 結果 %q", got)
	}
}

// TestResolveIcon_InvalidSite は不正なサイトURLで空文字列を返すことを検証する。
func TestResolveIcon_InvalidSite(t *testing.T) {
	r := NewIconResolver(&mockClientFactory{}, "", nil)
	for _, site := range []string{"", "ftp://example.com/", "::bad", "/relative"} {
		if got := r.ResolveIcon(context.Background(), site); got != "" {
			t.Errorf("%q: 空文字列であるべき, 結果 %q", site, got)
		}
	}
}
