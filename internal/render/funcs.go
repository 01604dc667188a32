package render

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
)

var ugcPolicy = bluemonday.UGCPolicy()

func templateFuncs(opts Options) template.FuncMap {
	return template.FuncMap{
		"url": func(name string, pairs ...interface{}) (string, error) {
			if opts.URL == nil {
				return "", fmt.Errorf("url: no reverser configured")
			}
			args := make([]string, len(pairs))
			for i, p := range pairs {
				args[i] = fmt.Sprint(p)
			}
			return opts.URL(name, args...)
		},
		"media": func(ref string) string {
			if ref == "" {
				return ""
			}
			return strings.TrimSuffix(opts.MediaURL, "/") + "/" + strings.TrimPrefix(ref, "/")
		},
		"richtext":      RichText,
		"truncatewords": TruncateWords,
		"naturaltime":   humanize.Time,
		"intcomma": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"date": func(t time.Time) string {
			return t.Format("02 Jan 2006")
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"plural": func(n int, one, many string) string {
			if n == 1 {
				return one
			}
			return many
		},
		"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			m := make(map[string]interface{}, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},
	}
}

// RichText sanitizes user text and keeps its line breaks.
func RichText(text string) template.HTML {
	clean := ugcPolicy.Sanitize(text)
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(clean, "\n", "<br>\n"))
}

// TruncateWords keeps the first n words and marks the cut with an ellipsis.
func TruncateWords(n int, text string) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ") + " …"
}
