package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/andrewh/spanview/pkg/chart"
)

// SVG chart dimensions
const (
	ganttWidth       = 900
	ganttMarginTop   = 40
	ganttMarginRight = 20
	ganttMarginLeft  = 20
	ganttMarginBot   = 40
	ganttRowHeight   = 22
	ganttBarHeight   = 14
	ganttPlotWidth   = ganttWidth - ganttMarginLeft - ganttMarginRight
	ganttTickCount   = 8
	minBarWidth      = 1.0
)

// renderGanttSVG draws one bar per segment in layout order, scaled to
// the viewport's visible window. Segments entirely outside the window
// keep their row so the vertical order stays stable.
func renderGanttSVG(w io.Writer, model chart.ChartModel, vp *chart.Viewport, title string) error {
	if len(model.Segments) == 0 {
		return fmt.Errorf("no segments to render")
	}

	windowStart, windowEnd := vp.Start, vp.End
	windowSpan := windowEnd - windowStart
	if windowSpan <= 0 {
		windowSpan = 1
	}

	height := ganttMarginTop + len(model.Segments)*ganttRowHeight + ganttMarginBot
	plotHeight := len(model.Segments) * ganttRowHeight

	toX := func(ms float64) float64 {
		return float64(ganttMarginLeft) + float64(ganttPlotWidth)*(ms-windowStart)/windowSpan
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`, ganttWidth, height, ganttWidth, height))
	b.WriteString("\n<style>\n")
	b.WriteString("  text { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; fill: #333; }\n")
	b.WriteString("  .title { font-size: 14px; font-weight: 600; }\n")
	b.WriteString("  .tick-label { font-size: 10px; fill: #666; }\n")
	b.WriteString("  .grid { stroke: #e0e0e0; stroke-width: 1; }\n")
	b.WriteString("  .bar { fill: #2563eb; fill-opacity: 0.85; }\n")
	b.WriteString("  .bar-error { fill: #dc2626; fill-opacity: 0.85; }\n")
	b.WriteString("  .bar-label { font-size: 10px; }\n")
	b.WriteString("</style>\n")

	// Background
	b.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, ganttWidth, height))
	b.WriteString("\n")

	// Title
	b.WriteString(fmt.Sprintf(`<text x="%d" y="24" class="title">%s</text>`, ganttMarginLeft, xmlEscape(title)))
	b.WriteString("\n")

	// Time grid and tick labels
	for i := 0; i <= ganttTickCount; i++ {
		ms := windowStart + windowSpan*float64(i)/float64(ganttTickCount)
		x := toX(ms)
		b.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" class="grid"/>`, x, ganttMarginTop, x, ganttMarginTop+plotHeight))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" text-anchor="middle" class="tick-label">%s</text>`, x, ganttMarginTop+plotHeight+16, formatMs(ms)))
		b.WriteString("\n")
	}

	annotations := vp.ProjectAnnotations(model.Annotations, model.Segments)
	labels := make(map[string]string, len(annotations))
	for _, a := range annotations {
		labels[a.SpanID] = a.Label
	}

	for i, seg := range model.Segments {
		rowTop := ganttMarginTop + i*ganttRowHeight
		barTop := rowTop + (ganttRowHeight-ganttBarHeight)/2

		start := seg.OffsetMs
		end := seg.OffsetMs + seg.DurationMs
		if end < windowStart || start > windowEnd {
			continue
		}
		if start < windowStart {
			start = windowStart
		}
		if end > windowEnd {
			end = windowEnd
		}

		x := toX(start)
		barWidth := toX(end) - x
		if barWidth < minBarWidth {
			barWidth = minBarWidth
		}

		class := "bar"
		if seg.IsError {
			class = "bar-error"
		}
		b.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%d" width="%.1f" height="%d" rx="2" class="%s"/>`, x, barTop, barWidth, ganttBarHeight, class))
		b.WriteString("\n")

		if label, ok := labels[seg.SpanID]; ok {
			b.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" class="bar-label">%s</text>`, x+barWidth+4, barTop+ganttBarHeight-3, xmlEscape(label)))
			b.WriteString("\n")
		}
	}

	// Plot area border
	b.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="none" stroke="#ccc" stroke-width="1"/>`, ganttMarginLeft, ganttMarginTop, ganttPlotWidth, plotHeight))
	b.WriteString("\n")

	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func formatMs(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	if ms == math.Trunc(ms) {
		return fmt.Sprintf("%.0fms", ms)
	}
	return fmt.Sprintf("%.2fms", ms)
}

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
