/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders generated scripts for review outside the engine.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"mdrpy/internal/storage"
)

// Color is an RGB triple, 0-255 per channel.
type Color struct{ R, G, B int }

// PDFOptions controls the script proof. Units are points.
//
// The proof is an A4 listing in the built-in Courier face, so columns line
// up the way they do in the .rpy file. Labels are set in bold and comment
// lines in CommentColor. Lines longer than the text column wrap; wrapped
// continuations carry no line number.
type PDFOptions struct {
	LineNumbers  bool
	FontSize     float64 // 0 means 9pt
	Margin       float64 // 0 means 42pt
	IncludeRule  bool    // hairline between the number gutter and the text
	CommentColor Color   // zero value means mid gray
	Author       string
}

// ScriptPDF writes a proof of script to w.
func ScriptPDF(w io.Writer, title, script string, opt PDFOptions) error {
	pdf, err := renderScript(title, script, opt)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportScriptPDF writes a proof of script to outPath, creating directories.
func ExportScriptPDF(outPath, title, script string, opt PDFOptions) error {
	var buf bytes.Buffer
	if err := ScriptPDF(&buf, title, script, opt); err != nil {
		return err
	}
	return storage.WriteFileAtomic(outPath, buf.Bytes(), false)
}

func renderScript(title, script string, opt PDFOptions) (*gofpdf.Fpdf, error) {
	size := opt.FontSize
	if size <= 0 {
		size = 9
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = 42
	}
	comment := opt.CommentColor
	if comment == (Color{}) {
		comment = Color{R: 120, G: 120, B: 120}
	}
	lineH := size * 1.35

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "A4", OrientationStr: "P"})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetCreator("mdrpy", false)
	pdf.SetMargins(margin, margin+lineH, margin)
	pdf.SetAutoPageBreak(true, margin+lineH)
	pdf.AliasNbPages("")

	pageW, pageH := pdf.GetPageSize()
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Courier", "B", size)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(margin, margin-lineH)
		pdf.CellFormat(pageW-2*margin, lineH, tr(title), "B", 1, "L", false, 0, "")
		pdf.SetY(margin + lineH)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetFont("Courier", "", size-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(margin, pageH-margin)
		pdf.CellFormat(pageW-2*margin, lineH, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	lines := strings.Split(strings.TrimSuffix(script, "\n"), "\n")
	gutter := 0.0
	if opt.LineNumbers {
		gutter = float64(len(strconv.Itoa(len(lines)))+1) * charWidth(size)
	}
	textW := pageW - 2*margin - gutter
	perLine := int(textW / charWidth(size))
	if perLine < 8 {
		return nil, fmt.Errorf("page too narrow for %.1fpt text", size)
	}

	pdf.AddPage()
	for i, line := range lines {
		style, color := lineStyle(line, comment)
		for j, chunk := range wrap(line, perLine) {
			x := margin
			if opt.LineNumbers {
				pdf.SetFont("Courier", "", size)
				pdf.SetTextColor(150, 150, 150)
				num := ""
				if j == 0 {
					num = strconv.Itoa(i + 1)
				}
				pdf.SetX(x)
				pdf.CellFormat(gutter-charWidth(size)/2, lineH, num, "", 0, "R", false, 0, "")
				if opt.IncludeRule {
					y := pdf.GetY()
					pdf.SetDrawColor(200, 200, 200)
					pdf.SetLineWidth(0.2)
					pdf.Line(x+gutter-charWidth(size)/4, y, x+gutter-charWidth(size)/4, y+lineH)
				}
				x += gutter
			}
			pdf.SetFont("Courier", style, size)
			pdf.SetTextColor(color.R, color.G, color.B)
			pdf.SetX(x)
			pdf.CellFormat(textW, lineH, tr(chunk), "", 1, "L", false, 0, "")
		}
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

// charWidth is the advance of one Courier glyph.
func charWidth(size float64) float64 { return size * 0.6 }

func lineStyle(line string, comment Color) (string, Color) {
	s := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(s, "label ") || strings.HasPrefix(s, "menu:"):
		return "B", Color{}
	case strings.HasPrefix(s, "#"):
		return "I", comment
	}
	return "", Color{}
}

// wrap splits line into chunks of at most n runes. Leading indentation is
// repeated on continuation chunks so nesting stays visible.
func wrap(line string, n int) []string {
	r := []rune(line)
	if len(r) <= n {
		return []string{line}
	}
	lead := len(r) - len([]rune(strings.TrimLeft(line, " ")))
	if lead > n/2 {
		lead = n / 2
	}
	pad := strings.Repeat(" ", lead)
	out := []string{string(r[:n])}
	r = r[n:]
	for len(r) > 0 {
		take := n - lead
		if take > len(r) {
			take = len(r)
		}
		out = append(out, pad+string(r[:take]))
		r = r[take:]
	}
	return out
}
