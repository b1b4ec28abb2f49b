package pipeline

import (
	"bytes"
	"html/template"
	"path"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Page is one rendered document.
type Page struct {
	Source      string `json:"source"`
	Output      string `json:"output"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Fingerprint string `json:"fingerprint"`
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}{{if .SiteTitle}} | {{.SiteTitle}}{{end}}</title>
{{- range .Stylesheets}}
<link rel="stylesheet" href="{{.}}">
{{- end}}
{{- if .Reload}}
{{.Reload}}
{{- end}}
</head>
<body>
<article>
<h1>{{.Title}}</h1>
{{.Body}}
</article>
</body>
</html>
`))

type pageData struct {
	Title       string
	SiteTitle   string
	Stylesheets []string
	Reload      template.HTML
	Body        template.HTML
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
}

// outputPath maps a content relative Markdown path to its HTML output and URL.
// "index.md" files become the index of their directory.
func outputPath(rel, baseDir string) (file, url string) {
	rel = filepath.ToSlash(rel)
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	if path.Base(stem) == "index" {
		dir := path.Dir(stem)
		if dir == "." {
			return "index.html", baseDir + "/"
		}
		return dir + "/index.html", baseDir + "/" + dir + "/"
	}
	return stem + ".html", baseDir + "/" + stem
}

// titleFromSlug turns "getting-started_guide" into "Getting Started Guide".
func titleFromSlug(caser cases.Caser, rel string) string {
	stem := strings.TrimSuffix(path.Base(filepath.ToSlash(rel)), path.Ext(rel))
	if stem == "index" {
		dir := path.Base(path.Dir(filepath.ToSlash(rel)))
		if dir == "." || dir == "/" {
			return "Home"
		}
		stem = dir
	}
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	return caser.String(strings.Join(words, " "))
}

func newTitleCaser() cases.Caser {
	return cases.Title(language.English)
}

// renderPage converts one Markdown document into a full HTML page.
func (p *MarkdownPipeline) renderPage(md goldmark.Markdown, caser cases.Caser, rel string, content []byte) (Page, []byte, bool, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return Page{}, nil, false, err
	}
	meta, err := parseMeta(fm)
	if err != nil {
		return Page{}, nil, false, err
	}
	if meta.Draft && !p.opts.IncludeDrafts {
		return Page{}, nil, false, nil
	}

	var rendered bytes.Buffer
	if err := md.Convert(body, &rendered); err != nil {
		return Page{}, nil, false, err
	}

	title := meta.Title
	if title == "" {
		title = titleFromSlug(caser, rel)
	}
	file, url := outputPath(rel, p.opts.BaseDir)
	page := Page{
		Source:      filepath.ToSlash(rel),
		Output:      file,
		URL:         url,
		Title:       title,
		Fingerprint: mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(fm), "\n"), string(body)),
	}

	data := pageData{
		Title:       title,
		SiteTitle:   p.opts.SiteTitle,
		Stylesheets: p.opts.Stylesheets,
		Body:        template.HTML(rendered.String()), // #nosec G203 -- rendered from the operator's own content
	}
	if p.opts.ReloadSnippet != "" {
		data.Reload = template.HTML(p.opts.ReloadSnippet) // #nosec G203 -- fixed script emitted by this program
	}
	var out bytes.Buffer
	if err := pageTemplate.Execute(&out, data); err != nil {
		return Page{}, nil, false, err
	}
	return page, out.Bytes(), true, nil
}
