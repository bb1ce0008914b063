// Package excerpt строит краткий анонс поста из markdown-контента.
//
// Разметка снимается через AST goldmark: в анонс попадает только
// текстовое содержимое узлов, без заголовочных маркеров, эмфазы
// и синтаксиса ссылок. Результат усекается до maxLength символов
// с добавлением многоточия при усечении.
package excerpt

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	maxLength = 150
	ellipsis  = "..."
)

// FromMarkdown возвращает анонс для переданного markdown-текста.
func FromMarkdown(content string) string {
	source := []byte(content)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Разделитель между блоками, чтобы абзацы не склеивались.
			if n.Type() == ast.TypeBlock {
				sb.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.AutoLink:
			sb.Write(t.URL(source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})

	plain := strings.Join(strings.Fields(sb.String()), " ")
	return truncate(plain, maxLength)
}

// truncate усекает строку до limit рун, добавляя многоточие при усечении.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimRight(string(runes[:limit]), " ") + ellipsis
}
