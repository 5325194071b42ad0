package models

import (
	"strings"
	"time"
)

// NotAvailable is the sentinel for fields the extraction service could not identify.
const NotAvailable = "N/A"

// TimestampLayout is the ISO-8601 layout used for ScrapeResult.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ProductRecord is one graphics card listing.
// All fields are display strings; nothing here is parsed numerically.
type ProductRecord struct {
	// Model is the full product name, e.g. "GeForce RTX 4070 Ti Super".
	Model string `json:"model"`

	// Price keeps the site's formatting, e.g. "R$ 1.299,99".
	Price string `json:"price"`

	// MemorySize carries its unit, e.g. "8GB".
	MemorySize string `json:"memory_size"`

	// MemoryType is the GDDR generation, e.g. "GDDR6X".
	MemoryType string `json:"memory_type"`
}

// Normalize trims every field and replaces blanks with NotAvailable.
func (r *ProductRecord) Normalize() {
	r.Model = orNA(r.Model)
	r.Price = orNA(r.Price)
	r.MemorySize = orNA(r.MemorySize)
	r.MemoryType = orNA(r.MemoryType)
}

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return NotAvailable
	}
	return s
}

// ScrapeResult is the persisted output of one run.
type ScrapeResult struct {
	Timestamp  string          `json:"timestamp"`
	TotalCount int             `json:"total_count"`
	Records    []ProductRecord `json:"records"`
}

// NewScrapeResult wraps records with a timestamp and count.
// A nil slice is stored as an empty one so the file always carries an array.
func NewScrapeResult(records []ProductRecord, now time.Time) *ScrapeResult {
	if records == nil {
		records = []ProductRecord{}
	}
	return &ScrapeResult{
		Timestamp:  now.UTC().Format(TimestampLayout),
		TotalCount: len(records),
		Records:    records,
	}
}
