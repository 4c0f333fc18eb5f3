package server

import (
	"html/template"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Sagar-cesta/heatmap2/internal/dashboard"
)

// reportData feeds the report template. One section per nationwide view,
// plus the state list.
type reportData struct {
	Title    string
	Sections []reportSection
	States   []string
}

type reportSection struct {
	Heading string
	View    *dashboard.View
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"cell": formatCell,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #999; padding: 4px 10px; text-align: left; }
th { background: #eee; }
td.num { text-align: right; }
p.dropped { color: #a33; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Sections}}
<section>
<h2>{{.Heading}}</h2>
<table data-view="{{.View.Name}}">
<thead><tr>{{range .View.Table.Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .View.Table.Rows}}<tr>{{range .}}<td>{{cell .}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{if .View.Dropped}}<p class="dropped">Unmapped states omitted: {{len .View.Dropped}}</p>{{end}}
</section>
{{end}}
<section>
<h2>States with data</h2>
<ul id="states">
{{range .States}}<li>{{.}}</li>
{{end}}</ul>
</section>
</body>
</html>
`))

var reportPrinter = message.NewPrinter(language.English)

// formatCell renders a table cell. Counts get thousands separators; pivot
// cells are whole numbers, aggregate counts are float64 with integral
// values, so both print without decimals.
func formatCell(v any) string {
	switch n := v.(type) {
	case int:
		return reportPrinter.Sprintf("%d", n)
	case float64:
		return reportPrinter.Sprintf("%d", int64(n))
	case string:
		return n
	case nil:
		return ""
	default:
		return reportPrinter.Sprintf("%v", n)
	}
}

// handleReport renders every nationwide view as one HTML page.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	overview, err := s.svc.Overview(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	categories, err := s.svc.Categories(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	negotiated, err := s.svc.NegotiatedTypes(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	states, err := s.svc.States(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := reportData{
		Title: "Healthcare Pricing Heat Map",
		Sections: []reportSection{
			{Heading: "Observations by state", View: overview},
			{Heading: "Category volume by state", View: categories},
			{Heading: "Negotiated types by state", View: negotiated},
		},
		States: states,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reportTmpl.Execute(w, data); err != nil {
		s.log.Printf("stage=report err=%v", err)
	}
}
