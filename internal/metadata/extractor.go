// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metadata

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/nwaples/rardecode/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/buivan/tosho/internal/archive"
)

// # Container-Internal Metadata

// Internal holds metadata read from inside a container: a ComicInfo.xml
// document, an EPUB OPF package, or a PDF document-info dictionary.
//
// Pointer fields distinguish "absent" from a legitimate zero so the resolver
// can apply presence-based precedence.
type Internal struct {
	Title  string
	Author string
	Number *float64
	Volume *float64
	Year   *int
}

/*
ExtractInternal reads whatever metadata document the container carries.

Description: Best-effort by contract. A container without any metadata
document yields (nil, nil); a document that fails to parse yields an error
the caller logs and then treats as "no contribution". The archive format is
sniffed, never taken from the extension.

Parameters:
  - context: context.Context
  - filePath: string (Archive on disk)

Returns:
  - *Internal: Extracted fields, or nil when the container carries none
  - error: Parse or IO failures; callers treat these as a missing document
*/
func ExtractInternal(context context.Context, filePath string) (*Internal, error) {
	format, err := archive.Detect(filePath)
	if err != nil {
		return nil, err
	}

	switch format {
	case archive.FormatZip:
		return extractFromZip(filePath)
	case archive.FormatRar:
		return extractFromRar(filePath)
	case archive.FormatPDF:
		return extractFromPDF(filePath)
	default:
		return nil, nil
	}
}

// # ComicInfo.xml (zip/rar families)

// comicInfoDocument mirrors the fields of the ComicInfo.xml schema the
// resolver consumes. Numeric fields stay strings; scanlation tools emit
// values like "10.5" and occasionally junk.
type comicInfoDocument struct {
	XMLName xml.Name `xml:"ComicInfo"`
	Series  string   `xml:"Series"`
	Title   string   `xml:"Title"`
	Number  string   `xml:"Number"`
	Volume  string   `xml:"Volume"`
	Year    string   `xml:"Year"`
	Writer  string   `xml:"Writer"`
}

func extractFromZip(filePath string) (*Internal, error) {
	container, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer container.Close()

	for _, entry := range container.File {
		base := strings.ToLower(path.Base(entry.Name))

		if base == "comicinfo.xml" {
			document, err := entry.Open()
			if err != nil {
				return nil, err
			}
			defer document.Close()
			return parseComicInfo(document)
		}

		// EPUBs are zip containers; their metadata lives in the OPF package.
		if strings.HasSuffix(base, ".opf") {
			document, err := entry.Open()
			if err != nil {
				return nil, err
			}
			defer document.Close()
			return parseOPF(document)
		}
	}
	return nil, nil
}

func extractFromRar(filePath string) (*Internal, error) {
	container, err := rardecode.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer container.Close()

	for {
		header, err := container.Next()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if header.IsDir {
			continue
		}
		if strings.EqualFold(path.Base(header.Name), "comicinfo.xml") {
			return parseComicInfo(container)
		}
	}
}

func parseComicInfo(document io.Reader) (*Internal, error) {
	var info comicInfoDocument
	if err := xml.NewDecoder(document).Decode(&info); err != nil {
		return nil, err
	}

	internal := &Internal{
		Title:  strings.TrimSpace(info.Series),
		Author: strings.TrimSpace(info.Writer),
	}
	if internal.Title == "" {
		internal.Title = strings.TrimSpace(info.Title)
	}
	if number, err := strconv.ParseFloat(strings.TrimSpace(info.Number), 64); err == nil {
		internal.Number = &number
	}
	if volume, err := strconv.ParseFloat(strings.TrimSpace(info.Volume), 64); err == nil {
		internal.Volume = &volume
	}
	if year, err := strconv.Atoi(strings.TrimSpace(info.Year)); err == nil && year > 0 {
		internal.Year = &year
	}
	return internal, nil
}

// # EPUB OPF Packages

// parseOPF pulls the Dublin Core title and creator out of an OPF package.
// Queries match by local name so namespace prefix variations don't matter.
func parseOPF(document io.Reader) (*Internal, error) {
	tree, err := xmlquery.Parse(document)
	if err != nil {
		return nil, err
	}

	internal := &Internal{}
	if node := xmlquery.FindOne(tree, "//*[local-name()='metadata']/*[local-name()='title']"); node != nil {
		internal.Title = strings.TrimSpace(node.InnerText())
	}
	if node := xmlquery.FindOne(tree, "//*[local-name()='metadata']/*[local-name()='creator']"); node != nil {
		internal.Author = strings.TrimSpace(node.InnerText())
	}
	if internal.Title == "" && internal.Author == "" {
		return nil, nil
	}
	return internal, nil
}

// # PDF Document-Info Dictionaries

func extractFromPDF(filePath string) (*Internal, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	document, err := api.ReadValidateAndOptimize(file, model.NewDefaultConfiguration())
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(document.Title)
	if isGenericTitle(title) {
		title = ""
	}

	internal := &Internal{
		Title:  title,
		Author: strings.TrimSpace(document.Author),
	}
	if internal.Title == "" && internal.Author == "" {
		return nil, nil
	}
	return internal, nil
}

// isGenericTitle reports whether a document title is a word-processor
// default that carries no real information.
func isGenericTitle(title string) bool {
	switch {
	case title == "":
		return true
	case strings.EqualFold(title, "untitled"):
		return true
	case strings.EqualFold(title, "document"):
		return true
	case strings.HasPrefix(title, "Microsoft Word"):
		return true
	case strings.HasPrefix(title, "PowerPoint"):
		return true
	default:
		return false
	}
}
