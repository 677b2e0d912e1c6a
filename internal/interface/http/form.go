package http

import (
	"html/template"
	"io"
)

// indexPage feeds the upload form template.
type indexPage struct {
	Title        string
	FieldName    string
	MaxDocuments int
	MaxUploadMB  int64
	Archive      bool
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; max-width: 40rem; margin: 3rem auto; padding: 0 1rem; color: #222; }
h1 { font-size: 1.6rem; }
label { display: block; margin: 1rem 0 .3rem; font-weight: bold; }
.hint { color: #666; font-size: .9rem; }
button { margin-top: 1.5rem; padding: .6rem 1.4rem; font-size: 1rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="hint">Upload one transcript per semester. Semesters are detected from the
documents themselves, so the upload order only matters when the same semester
appears twice (the later upload wins).</p>
<form action="/generate" method="post" enctype="multipart/form-data">
  <label for="{{.FieldName}}">Transcripts (PDF or text)</label>
  <input id="{{.FieldName}}" type="file" name="{{.FieldName}}" accept=".pdf,.txt,application/pdf,text/plain" multiple required>
  <p class="hint">{{if .MaxDocuments}}Up to {{.MaxDocuments}} files, {{end}}{{.MaxUploadMB}} MB in total.</p>

  <label for="filename">Download name</label>
  <input id="filename" type="text" name="filename" placeholder="CGPA_Certificate.pdf">

  <label for="format">Format</label>
  <select id="format" name="format">
    <option value="pdf" selected>PDF certificate</option>
    <option value="json">JSON summary</option>
  </select>
{{if .Archive}}
  <label><input type="checkbox" name="archive" value="true"> Keep a copy of this summary</label>
{{end}}
  <button type="submit">Generate certificate</button>
</form>
</body>
</html>
`))

func renderIndex(w io.Writer, page indexPage) error {
	return indexTemplate.Execute(w, page)
}
