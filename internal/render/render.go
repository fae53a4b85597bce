// Package render turns the processors' template variables into document
// text. Each module has an embedded default template which a user may
// override with a template file of their own.
package render

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
)

// Template names the processors render with.
const (
	HandwrittenPage  = "handwritten-page"
	HandwrittenIndex = "handwritten-index"
	Ebook            = "ebook"
	Memo             = "memo"
	Journal          = "journal"
)

// NotesPlaceholder is the instruction line the default templates emit.
// The merger treats it as noise: it is never preserved as user content.
const NotesPlaceholder = "*Add your notes here.*"

const handwrittenPageTmpl = `---
note_id: {{ .NoteID }}
title: {{ quote .Title }}
created: {{ .Created }}
modified: {{ .Modified }}
page: {{ .Page }}
total_pages: {{ .TotalPages }}
tags:
  - handwritten
  - {{ .DateTag }}
---

# {{ .Title }}, page {{ .Page }} of {{ .TotalPages }}

{{ if .Image }}![[{{ .Image }}]]

{{ end }}{{ if .Text }}{{ .Text }}

{{ end }}` + NotesPlaceholder + `
`

const handwrittenIndexTmpl = `---
note_id: {{ .NoteID }}
title: {{ quote .Title }}
created: {{ .Created }}
modified: {{ .Modified }}
total_pages: {{ .TotalPages }}
tags:
  - handwritten
  - {{ .DateTag }}
---

# {{ .Title }}

{{ range .Pages }}- [[{{ . }}]]
{{ end }}`

const ebookTmpl = `---
note_id: {{ .NoteID }}
title: {{ quote .Title }}
author: {{ quote .Author }}
created: {{ .Created }}
modified: {{ .Modified }}
tags:
  - ebook
  - {{ .DateTag }}
---

# {{ .Title }}

*{{ .Author }}*

## Highlights

{{ range .Highlights }}> {{ .Text }}
{{ if .Note }}
{{ .Note }}
{{ end }}
{{ end }}`

const memoTmpl = `---
note_id: {{ .NoteID }}
title: {{ quote .Title }}
created: {{ .Created }}
modified: {{ .Modified }}
tags:
  - memo
  - {{ .DateTag }}
---

# {{ .Title }}

{{ if .Image }}![[{{ .Image }}]]

{{ end }}{{ .Content }}
{{ if .Items }}
## Items

{{ range .Items }}- [{{ if .Done }}x{{ else }} {{ end }}] {{ .Content }}
{{ end }}{{ end }}`

const journalTmpl = `---
note_id: {{ .NoteID }}
title: {{ quote .Title }}
date: {{ .DateTag }}
created: {{ .Created }}
modified: {{ .Modified }}
tags:
  - journal
  - {{ .DateTag }}
---

# {{ .Title }}

{{ range .Images }}![[{{ . }}]]
{{ end }}{{ if .Text }}
{{ .Text }}
{{ end }}`

var defaults = map[string]string{
	HandwrittenPage:  handwrittenPageTmpl,
	HandwrittenIndex: handwrittenIndexTmpl,
	Ebook:            ebookTmpl,
	Memo:             memoTmpl,
	Journal:          journalTmpl,
}

var funcs = template.FuncMap{
	"quote": strconv.Quote,
}

// Engine holds one parsed template per module document kind.
type Engine struct {
	templates map[string]*template.Template
}

// New parses the default templates, then replaces any for which the
// caller supplies an override file path. Unknown override names error so
// a typo in config is caught at startup rather than silently ignored.
func New(overrides map[string]string) (*Engine, error) {
	e := &Engine{templates: make(map[string]*template.Template, len(defaults))}
	for name, text := range defaults {
		t, err := template.New(name).Funcs(funcs).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("render: parse default %s: %w", name, err)
		}
		e.templates[name] = t
	}
	for name, path := range overrides {
		if path == "" {
			continue
		}
		if _, known := defaults[name]; !known {
			return nil, fmt.Errorf("render: unknown template override %q", name)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("render: read override %s: %w", name, err)
		}
		t, err := template.New(name).Funcs(funcs).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("render: parse override %s: %w", name, err)
		}
		e.templates[name] = t
	}
	return e, nil
}

// Render executes the named template with the given flat variable map.
func (e *Engine) Render(name string, vars map[string]any) (string, error) {
	t, ok := e.templates[name]
	if !ok {
		return "", fmt.Errorf("render: no template %q", name)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("render: execute %s: %w", name, err)
	}
	return sb.String(), nil
}
