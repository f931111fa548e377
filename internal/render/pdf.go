/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"

	"rpyslides/internal/assets"
	"rpyslides/internal/deck"
	applog "rpyslides/internal/log"
)

// Page geometry in points, 16:9.
const (
	pageW      = 720.0
	pageH      = 405.0
	margin     = 20.0
	titleH     = 36.0
	stageTop   = 64.0
	stageH     = 170.0
	textTop    = 246.0
	lineH      = 16.0
	buttonW    = 90.0
	buttonH    = 22.0
	bodyFont   = 14.0
	titleFont  = 20.0
	choiceFont = 13.0
)

// pdfEpoch is stamped as the creation date so equal decks give equal files.
var pdfEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PDF draws doc directly as a PDF with one page per slide, internal links for
// jumps and choices, and the stage sprites that could be resolved.
func PDF(w io.Writer, doc Document) error {
	l := applog.WithOperation(applog.WithComponent("render"), "pdf")

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator("rpyslides", false)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(margin, margin, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	links := make([]int, len(doc.Slides))
	for i := range links {
		links[i] = pdf.AddLink()
	}
	labels := labelIndex(doc.Slides)
	linkFor := func(label string) (int, bool) {
		i, ok := labels[label]
		if !ok {
			return 0, false
		}
		return links[i], true
	}

	// title page
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetXY(margin, pageH/2-40)
	pdf.CellFormat(pageW-2*margin, 40, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetX(margin)
	pdf.CellFormat(pageW-2*margin, 24, tr(doc.Author), "", 1, "C", false, 0, "")

	sprites := &spriteCache{pdf: pdf, res: doc.Sprites, log: l, names: map[string]string{}}
	for _, s := range doc.Slides {
		pdf.AddPage()
		pdf.SetLink(links[s.Index], 0, -1)

		var speaker, color string
		switch b := s.Body.(type) {
		case deck.DialogueBody:
			speaker, color = b.Speaker, b.Color
		case deck.MenuBody:
			speaker, color = b.Speaker, b.Color
		}
		if r, g, b, ok := hexColor(color); ok {
			pdf.SetTextColor(r, g, b)
		}
		pdf.SetFont("Helvetica", "B", titleFont)
		pdf.SetXY(margin, margin)
		pdf.CellFormat(pageW-2*margin, titleH, tr(speaker), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)

		drawStage(pdf, sprites, s.Stage)

		pdf.SetXY(margin, textTop)
		pdf.SetFont("Helvetica", "", bodyFont)
		switch b := s.Body.(type) {
		case deck.DialogueBody:
			pdf.MultiCell(pageW-2*margin, lineH, tr(b.Text), "", "L", false)
		case deck.MenuBody:
			if b.Prompt != "" {
				pdf.MultiCell(pageW-2*margin, lineH, tr(b.Prompt), "", "L", false)
			}
			pdf.SetFont("Helvetica", "U", choiceFont)
			pdf.SetTextColor(0, 0, 160)
			for _, c := range b.Choices {
				link, ok := linkFor(c.Target)
				if !ok && !c.Ends {
					l.Warn("choice target has no slide", slog.String("target", c.Target), slog.Int("slide", s.Index))
				}
				pdf.SetX(margin + 12)
				pdf.CellFormat(pageW-2*margin-12, lineH+2, tr("- "+c.Text), "", 1, "L", false, link, "")
			}
			pdf.SetTextColor(0, 0, 0)
		}

		next := 0
		switch {
		case s.Jump != "":
			var ok bool
			if next, ok = linkFor(s.Jump); !ok {
				l.Warn("jump target has no slide", slog.String("target", s.Jump), slog.Int("slide", s.Index))
			}
		case s.FallsThrough() && s.Index+1 < len(doc.Slides):
			next = links[s.Index+1]
		}
		if next != 0 {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.SetFillColor(230, 230, 230)
			pdf.SetXY(pageW-margin-buttonW, pageH-margin-buttonH)
			pdf.CellFormat(buttonW, buttonH, "Next", "1", 0, "C", true, next, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Debug("pdf written", slog.Int("pages", pdf.PageCount()))
	return nil
}

// spriteCache registers each sprite image once per document.
type spriteCache struct {
	pdf   *gofpdf.Fpdf
	res   *assets.Resolver
	log   *slog.Logger
	names map[string]string // key -> registered image name, "" when unusable
}

func (c *spriteCache) get(key string) (string, assets.Image, bool) {
	img, ok := c.res.Find(key)
	if !ok {
		return "", img, false
	}
	if name, seen := c.names[key]; seen {
		return name, img, name != ""
	}
	data, err := img.PNG()
	if err != nil {
		c.log.Warn("sprite skipped", slog.String("key", key), slog.Any("err", err))
		c.names[key] = ""
		return "", img, false
	}
	name := "sprite:" + img.Path
	c.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	if err := c.pdf.Error(); err != nil {
		c.log.Warn("sprite skipped", slog.String("key", key), slog.Any("err", err))
		c.pdf.ClearError()
		c.names[key] = ""
		return "", img, false
	}
	c.names[key] = name
	return name, img, true
}

// drawStage places each occupied slot's sprite centered in its fifth of the page.
func drawStage(pdf *gofpdf.Fpdf, sprites *spriteCache, stage deck.Stage) {
	slotW := (pageW - 2*margin) / float64(len(stage))
	for i, key := range stage {
		if key == "" {
			continue
		}
		name, img, ok := sprites.get(key)
		if !ok || img.Width == 0 || img.Height == 0 {
			continue
		}
		h := stageH
		w := h * float64(img.Width) / float64(img.Height)
		if w > slotW-4 {
			w = slotW - 4
			h = w * float64(img.Height) / float64(img.Width)
		}
		x := margin + float64(i)*slotW + (slotW-w)/2
		y := stageTop + stageH - h
		pdf.ImageOptions(name, x, y, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
}
