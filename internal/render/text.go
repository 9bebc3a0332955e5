package render

import (
	"fmt"
	"io"
	"strings"
)

// TextWriter outputs the dashboard for a terminal.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, v *View) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n", v.Title)
	ew.println(strings.Repeat("─", 60))
	if s := v.Summary; s != nil {
		desc := s.ReviewScoreDesc
		if desc == "" {
			desc = "No rating"
		}
		ew.printf("%s · %d reviews (%d positive, %d negative)\n", desc, s.TotalReviews, s.TotalPositive, s.TotalNegative)
		ew.println(strings.Repeat("─", 60))
	}

	if len(v.Reviews) == 0 {
		switch {
		case v.Loading:
			ew.println("\nLoading reviews...")
		case v.Error == "":
			ew.println("\nNo reviews yet.")
		}
	}

	for _, s := range v.Reviews {
		r := s.Item
		marker := "  "
		if s.Entering {
			marker = "» "
		}
		verdict := "[-] Not Recommended"
		if r.VotedUp {
			verdict = "[+] Recommended"
		}
		ew.printf("\n%s#%d %s · %.1f hrs on record · %s\n",
			marker, s.Key+1, verdict, hours(r.Author.PlaytimeForever), r.Created().Format("2006-01-02"))
		for _, line := range wrapText(r.Text, 70) {
			ew.printf("    %s\n", line)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Showing %d of %d fetched", len(v.Reviews), v.Fetched)
	if v.HasMore {
		ew.printf(" · more available")
	}
	ew.println("")
	if v.Loading && len(v.Reviews) > 0 {
		ew.println("Loading...")
	}
	if v.Error != "" {
		ew.printf("Error: %s\n", v.Error)
	}
	if v.CanShowMore {
		ew.println("[m] show more")
	}
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// wrapText splits text into lines of at most width runes, breaking on
// whitespace. Blank input yields no lines.
func wrapText(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		var current strings.Builder
		n := 0
		for _, word := range strings.Fields(para) {
			wl := len([]rune(word))
			if n+wl+1 > width && n > 0 {
				lines = append(lines, current.String())
				current.Reset()
				n = 0
			}
			if n > 0 {
				current.WriteString(" ")
				n++
			}
			current.WriteString(word)
			n += wl
		}
		if n > 0 {
			lines = append(lines, current.String())
		}
	}
	return lines
}
