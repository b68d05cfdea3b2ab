package web

import "html/template"

const pageHead = `{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Book Summary</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
aside { color: #555; border-left: 3px solid #ccc; padding-left: 1rem; }
form { display: flex; gap: .5rem; margin: 1rem 0; }
input[type=text] { flex: 1; padding: .5rem; }
.error { color: #b00020; }
.success { color: #1b5e20; }
.progress { color: #555; font-style: italic; }
</style>
</head>
<body>
<h1>📚 Book Summary</h1>
<aside>This app extracts book titles and authors from text descriptions and provides summaries from the web.</aside>
<p>Enter a prompt asking for a book summary. The app will extract the book title, search for information, and provide a summary.</p>
<form method="post" action="/summary">
<input type="text" name="prompt" value="{{.Prompt}}" placeholder="Enter your prompt:" autofocus>
<button type="submit">Get Summary</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{end}}`

const pageExtracted = `{{define "extracted"}}<p><strong>Extracted Title:</strong> {{.Title}}</p>
<p><strong>Extracted Author:</strong> {{.DisplayAuthor}}</p>
<p class="success">Title and author extracted successfully!</p>
<p class="progress">Looking on the web for a summary...</p>
{{end}}`

const pageResult = `{{define "result"}}{{if .Found}}<h2>Book Summary</h2>
<p>{{.Text}}</p>
{{if .SourceURL}}<p><small>Source: <a href="{{.SourceURL}}" rel="noopener noreferrer">{{.SourceURL}}</a></small></p>{{end}}
{{else if .Error}}<p class="error">{{.Message}}</p>
{{else}}<h2>Book Summary</h2>
<p>{{.Message}}</p>
{{end}}{{end}}`

const pageFoot = `{{define "foot"}}</body>
</html>
{{end}}`

const pageForm = `{{define "form"}}{{template "head" .}}{{template "foot" .}}{{end}}`

//nolint:gochecknoglobals // Parsed once, read-only afterwards.
var templates = template.Must(template.New("page").Parse(
	pageHead + pageExtracted + pageResult + pageFoot + pageForm,
))

type formData struct {
	Prompt string
	Error  string
}

type resultData struct {
	Found     bool
	Error     bool
	Text      string
	SourceURL string
	Message   string
}
