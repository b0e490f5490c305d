package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

const (
	ContentTypePlain    = "text/plain"
	ContentTypeMarkdown = "text/markdown"
)

// Normalize turns ingested content into the plain prose the chunker operates
// on. Plain text passes through trimmed; markdown is flattened through the
// AST so headings and list items survive as sentence material while fenced
// code blocks are removed (code is not prose and skews sentence statistics).
func Normalize(ctx context.Context, content string, contentType string) string {
	switch contentType {
	case ContentTypeMarkdown:
		return flattenMarkdown(ctx, content)
	default:
		return strings.TrimSpace(content)
	}
}

// ContentHash returns the hex sha256 of normalized text, used to make
// re-ingestion of unchanged documents a no-op.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func flattenMarkdown(ctx context.Context, markdown string) string {
	logger := logutil.GetLogger(ctx)
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var parts []string
	droppedCode := 0
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			txt := strings.TrimSpace(string(n.Text(reader.Source())))
			if txt == "" {
				continue
			}
			if !strings.HasSuffix(txt, ".") && !strings.HasSuffix(txt, "?") && !strings.HasSuffix(txt, "!") {
				txt += "."
			}
			parts = append(parts, txt)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			droppedCode++
		default:
			txt := extractText(node, reader.Source())
			if txt == "" {
				continue
			}
			parts = append(parts, txt)
		}
	}
	if droppedCode > 0 {
		logger.Debug("dropped code blocks during normalization", zap.Int("count", droppedCode))
	}
	return strings.Join(parts, "\n\n")
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Type() == ast.TypeBlock && node != n && sb.Len() > 0 {
			if s := sb.String(); s[len(s)-1] != '\n' {
				sb.WriteByte('\n')
			}
		}
		if t, ok := node.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
