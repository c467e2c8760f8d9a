package feed

import (
	"testing"
)

const rssWithMedia = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title> Example Blog </title>
    <link>https://example.com/</link>
    <image>
      <url>https://example.com/icon.png</url>
      <title>Example Blog</title>
      <link>https://example.com/</link>
    </image>
    <item>
      <title>First</title>
      <link>https://example.com/1</link>
      <guid>urn:example:1</guid>
      <pubDate>Wed, 05 Jun 2024 10:00:00 GMT</pubDate>
      <description>summary one</description>
      <content:encoded><![CDATA[<p>full one</p>]]></content:encoded>
      <media:thumbnail url="https://example.com/thumb1.jpg" />
    </item>
    <item>
      <title>Second</title>
      <link>https://example.com/2</link>
      <description><![CDATA[<p>summary two</p>]]></description>
      <media:content url="https://example.com/photo2.jpg" medium="image" />
    </item>
    <item>
      <title>No identity</title>
      <description>dropped</description>
    </item>
    <item>
      <title>Enclosure</title>
      <guid>urn:example:4</guid>
      <enclosure url="https://example.com/photo4.png" type="image/png" length="100" />
      <media:thumbnail url="javascript:alert(1)" />
    </item>
  </channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <link href="https://atom.example.com/"/>
  <logo>https://atom.example.com/logo.png</logo>
  <id>urn:uuid:feed</id>
  <updated>2024-06-05T10:00:00Z</updated>
  <entry>
    <title>Atom Entry</title>
    <link href="https://atom.example.com/entry"/>
    <id>urn:uuid:entry-1</id>
    <updated>2024-06-05T10:00:00Z</updated>
    <summary>atom summary</summary>
  </entry>
</feed>`

// TestParse_RSS はRSSのチャンネル情報と記事が変換されることを検証する。
func TestParse_RSS(t *testing.T) {
	nf, err := Parse([]byte(rssWithMedia))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if nf.Title != "Example Blog" {
		t.Errorf("タイトル: 期待 %q, 結果 %q", "Example Blog", nf.Title)
	}
	if nf.IconURL != "https://example.com/icon.png" {
		t.Errorf("アイコン: 期待 %q, 結果 %q", "https://example.com/icon.png", nf.IconURL)
	}
	if nf.SiteURL != "https://example.com/" {
		t.Errorf("サイトURL: 期待 %q, 結果 %q", "https://example.com/", nf.SiteURL)
	}
	if len(nf.Articles) != 3 {
		t.Fatalf("GUIDもリンクもない記事は除外されるべき: 記事数 %d", len(nf.Articles))
	}

	first := nf.Articles[0]
	if first.GUID != "urn:example:1" {
		t.Errorf("GUID: 結果 %q", first.GUID)
	}
	if first.RawDate != "Wed, 05 Jun 2024 10:00:00 GMT" {
		t.Errorf("日時は生の文字列のまま保持されるべき: 結果 %q", first.RawDate)
	}
	if first.Content != "<p>full one</p>" {
		t.Errorf("content:encodedが優先されるべき: 結果 %q", first.Content)
	}
	if first.ThumbnailURL != "https://example.com/thumb1.jpg" {
		t.Errorf("media:thumbnail: 結果 %q", first.ThumbnailURL)
	}

	second := nf.Articles[1]
	if second.GUID != "https://example.com/2" {
		t.Errorf("GUIDがない場合はリンクを使うべき: 結果 %q", second.GUID)
	}
	if second.RawDate != "" {
		t.Errorf("日時がない場合は空文字列: 結果 %q", second.RawDate)
	}
	if second.Content != "<p>summary two</p>" {
		t.Errorf("本文がない場合はdescriptionを使うべき: 結果 %q", second.Content)
	}
	if second.ThumbnailURL != "https://example.com/photo2.jpg" {
		t.Errorf("media:content: 結果 %q", second.ThumbnailURL)
	}

	fourth := nf.Articles[2]
	if fourth.ThumbnailURL != "https://example.com/photo4.png" {
		t.Errorf("http以外のサムネイルを無視し、画像enclosureを使うべき: 結果 %q", fourth.ThumbnailURL)
	}
	if fourth.Link != "" {
		t.Errorf("リンクがない場合は空文字列: 結果 %q", fourth.Link)
	}
}

// TestParse_Atom はAtomフィードが変換されることを検証する。
func TestParse_Atom(t *testing.T) {
	nf, err := Parse([]byte(atomFeed))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if nf.Title != "Atom Example" {
		t.Errorf("タイトル: 結果 %q", nf.Title)
	}
	if nf.IconURL != "https://atom.example.com/logo.png" {
		t.Errorf("アイコン: 結果 %q", nf.IconURL)
	}
	if len(nf.Articles) != 1 {
		t.Fatalf("記事数: 期待 1, 結果 %d", len(nf.Articles))
	}
	a := nf.Articles[0]
	if a.GUID != "urn:uuid:entry-1" {
		t.Errorf("GUID: 結果 %q", a.GUID)
	}
	if a.Link != "https://atom.example.com/entry" {
		t.Errorf("リンク: 結果 %q", a.Link)
	}
	if a.RawDate != "2024-06-05T10:00:00Z" {
		t.Errorf("publishedがない場合はupdatedを使うべき: 結果 %q", a.RawDate)
	}
	if a.Content != "atom summary" {
		t.Errorf("本文: 結果 %q", a.Content)
	}
}

// TestParse_NoIcon はチャンネル画像がない場合にアイコンが空文字列になることを検証する。
func TestParse_NoIcon(t *testing.T) {
	body := `<rss version="2.0"><channel><title>T</title><item><guid>g</guid></item></channel></rss>`
	nf, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if nf.IconURL != "" {
		t.Errorf("アイコンは空文字列であるべき: 結果 %q", nf.IconURL)
	}
	if len(nf.Articles) != 1 || nf.Articles[0].Title != "" {
		t.Errorf("タイトルなしの記事は空文字列タイトルで保持されるべき: %+v", nf.Articles)
	}
}

// TestParse_Invalid はフィードでないボディがエラーになることを検証する。
func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"プレーンテキスト", "this is not a feed"},
		{"空", ""},
		{"JSON配列", "[1, 2, 3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.body)); err == nil {
				t.Error("エラーが返されるべき")
			}
		})
	}
}
