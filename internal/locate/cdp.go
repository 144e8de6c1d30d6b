// File: internal/locate/cdp.go
package locate

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// collectTextJS walks visible text nodes and reports their bounds in
// viewport pixels. The sweep is capped at 400 nodes.
const collectTextJS = `(() => {
	const out = [];
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
	while (walker.nextNode() && out.length < 400) {
		const node = walker.currentNode;
		const text = (node.textContent || '').trim();
		if (!text) continue;
		const el = node.parentElement;
		if (!el) continue;
		const r = el.getBoundingClientRect();
		if (r.width < 1 || r.height < 1) continue;
		out.push({
			text: text.slice(0, 200),
			x: Math.round(r.left),
			y: Math.round(r.top),
			w: Math.round(r.width),
			h: Math.round(r.height),
		});
	}
	return out;
})()`

// CDPTextLocator harvests DOM text through the browser target, so it sees the
// real strings instead of recognizing pixels. The frame argument is unused.
type CDPTextLocator struct {
	browserCtx context.Context
	logger     *zap.Logger
}

// NewCDPTextLocator wraps an established chromedp context.
func NewCDPTextLocator(browserCtx context.Context, logger *zap.Logger) *CDPTextLocator {
	return &CDPTextLocator{browserCtx: browserCtx, logger: logger.Named("locate.cdp")}
}

type domTextNode struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

func (l *CDPTextLocator) Locate(ctx context.Context, query string, frame image.Image, region *image.Rectangle) ([]Match, error) {
	runCtx, cancel := context.WithTimeout(l.browserCtx, 10*time.Second)
	defer cancel()

	var nodes []domTextNode
	if err := chromedp.Run(runCtx, chromedp.Evaluate(collectTextJS, &nodes)); err != nil {
		return nil, fmt.Errorf("collecting DOM text: %w", err)
	}

	cands := make([]Candidate, 0, len(nodes))
	for _, n := range nodes {
		cands = append(cands, Candidate{
			Text: n.Text,
			Rect: image.Rect(n.X, n.Y, n.X+n.W, n.Y+n.H),
		})
	}
	l.logger.Debug("DOM text sweep complete.",
		zap.String("query", query), zap.Int("candidates", len(cands)))

	return FilterRegion(Rank(query, cands, rankFloor), region), nil
}
