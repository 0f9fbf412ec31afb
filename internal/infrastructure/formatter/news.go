package formatter

import (
	"fmt"
	"strings"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

const (
	newsHeaderPrefix  = "📰 Notícia: "
	newsFooter        = "\n\n👇 Siga o fio para mais detalhes e a fonte."
	newsSummaryPrefix = "Resumo: "
	newsSummaryMore   = "... (leia mais no link)"
	newsSourcePrefix  = "Fonte oficial da notícia:\n"
	defaultNewsTags   = "#Noticias #Politica #Brasil"
	titlePlaceholder  = "..."
)

// NewsFormatter renders a news item as headline, summary and source parts.
type NewsFormatter struct {
	hashtags string
}

var _ ports.ThreadFormatter = (*NewsFormatter)(nil)

// NewNewsFormatter uses the default hashtags when none are given.
func NewNewsFormatter(hashtags string) *NewsFormatter {
	hashtags = strings.TrimSpace(hashtags)
	if hashtags == "" {
		hashtags = defaultNewsTags
	}
	return &NewsFormatter{hashtags: hashtags}
}

// Format builds up to three parts; the summary part is omitted for items without body.
func (f *NewsFormatter) Format(item domain.Item) ([]string, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil, fmt.Errorf("item %s has no title", item.ID)
	}
	link := item.URL()
	if link == "" {
		return nil, fmt.Errorf("item has no link")
	}

	tags := "\n\n" + f.hashtags
	headline := Shorten(newsHeaderPrefix+title, MaxPartLength-Length(newsFooter)-Length(tags), titlePlaceholder) +
		newsFooter + tags

	parts := []string{Clamp(headline, MaxPartLength)}

	if summary := StripHTML(item.Body); summary != "" {
		available := MaxPartLength - Length(newsSummaryPrefix)
		parts = append(parts, newsSummaryPrefix+Shorten(summary, available, newsSummaryMore))
	}

	parts = append(parts, Clamp(newsSourcePrefix+link, MaxPartLength))
	return parts, nil
}
