// file: internal/feed/feed.go
// version: 1.0.0
// guid: 0250c2c6-86e3-421d-8fff-71a9f69c12b8

// Package feed reads release listings: nyaa-style RSS documents or plain
// title lists. It never fetches anything over the network.
package feed

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFeed is returned when an RSS document cannot be decoded.
var ErrInvalidFeed = errors.New("invalid feed")

// Item is one release entry.
type Item struct {
	Title      string
	Link       string
	GUID       string
	PubDate    time.Time
	Size       string // human readable, e.g. "1.2 GiB"
	InfoHash   string
	Downloads  int
	CategoryID string
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

// Fields of the nyaa namespace are matched by local name.
type rssItem struct {
	Title      string `xml:"title"`
	Link       string `xml:"link"`
	GUID       string `xml:"guid"`
	PubDate    string `xml:"pubDate"`
	Size       string `xml:"size"`
	InfoHash   string `xml:"infoHash"`
	Downloads  string `xml:"downloads"`
	CategoryID string `xml:"categoryId"`
}

// Parse decodes an RSS document. Items without a title are dropped.
func Parse(r io.Reader) ([]Item, error) {
	var doc rssDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	items := make([]Item, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		item := Item{
			Title:      title,
			Link:       strings.TrimSpace(it.Link),
			GUID:       strings.TrimSpace(it.GUID),
			PubDate:    parseDate(it.PubDate),
			Size:       strings.TrimSpace(it.Size),
			InfoHash:   strings.TrimSpace(it.InfoHash),
			CategoryID: strings.TrimSpace(it.CategoryID),
		}
		if n, err := strconv.Atoi(strings.TrimSpace(it.Downloads)); err == nil {
			item.Downloads = n
		}
		items = append(items, item)
	}
	return items, nil
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseLines reads one title per line. A tab separates an optional size:
//
//	[Group] Show - 05 [1080p].mkv<TAB>1.4 GiB
//
// Blank lines and lines starting with # are ignored.
func ParseLines(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		title, size, _ := strings.Cut(line, "\t")
		items = append(items, Item{Title: strings.TrimSpace(title), Size: strings.TrimSpace(size)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read title list: %w", err)
	}
	return items, nil
}

// Read detects the input format: documents starting with '<' are RSS, the
// rest are title lists.
func Read(r io.Reader) ([]Item, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		if len(bytes.TrimSpace(b)) != 0 {
			if b[0] == '<' {
				return Parse(br)
			}
			return ParseLines(br)
		}
		if _, err := br.ReadByte(); err != nil {
			return nil, err
		}
	}
}

// ReadFile reads a feed from path; "-" reads stdin.
func ReadFile(path string) ([]Item, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer f.Close()
	return Read(f)
}
