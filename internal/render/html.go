package render

import (
	"fmt"
	"html/template"
	"io"
)

// EnteringClass marks the review revealed by the latest "show more".
const EnteringClass = "review--entering"

var pageTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"hours":    hours,
	"entering": func() string { return EnteringClass },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{with .Summary}}<p class="summary">{{if .ReviewScoreDesc}}{{.ReviewScoreDesc}}{{else}}No rating{{end}} · {{.TotalReviews}} reviews ({{.TotalPositive}} positive, {{.TotalNegative}} negative)</p>{{end}}
<section class="reviews" data-app-id="{{.AppID}}">
{{- range .Reviews}}
<article class="review{{if .Entering}} {{entering}}{{end}}" data-key="{{.Key}}" id="review-{{.Item.RecommendationID}}">
<header>{{if .Item.VotedUp}}Recommended{{else}}Not Recommended{{end}} · {{printf "%.1f" (hours .Item.Author.PlaytimeForever)}} hrs on record · <time datetime="{{.Item.Created.Format "2006-01-02T15:04:05Z07:00"}}">{{.Item.Created.Format "2006-01-02"}}</time></header>
<p>{{.Item.Text}}</p>
</article>
{{- else}}
<p class="empty">{{if $.Loading}}Loading reviews...{{else}}No reviews yet.{{end}}</p>
{{- end}}
</section>
{{if .Error}}<p class="error" role="alert">{{.Error}}</p>{{end}}
{{if .CanShowMore}}{{if .MoreURL}}<form method="post" action="{{.MoreURL}}"><button type="submit">Show more</button></form>{{else}}<button type="button">Show more</button>{{end}}{{end}}
<footer>Showing {{len .Reviews}} of {{.Fetched}} fetched</footer>
</body>
</html>
`))

// HTMLWriter outputs a standalone dashboard page.
type HTMLWriter struct{}

func (h *HTMLWriter) Write(w io.Writer, v *View) error {
	if err := pageTmpl.Execute(w, v); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	return nil
}
