package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	pagePlaceholder = "{page}"
	sizePlaceholder = "{size}"
)

// SiteConfig describes the target listing and how requests to it look.
// Defaults target kabum.com.br; a YAML profile can override any field.
type SiteConfig struct {
	// URLTemplate is the listing URL with {page} and {size} placeholders.
	URLTemplate string `yaml:"url_template"`

	// PageSize is substituted for {size}.
	PageSize int `yaml:"page_size"`

	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`

	// Cookies is a raw "name=value; name2=value2" cookie header.
	Cookies      string `yaml:"cookies"`
	CookieDomain string `yaml:"cookie_domain"`

	// DataSelector locates the element holding the embedded data blob.
	DataSelector string `yaml:"data_selector"`
}

// DefaultSite returns the kabum.com.br NVIDIA listing profile.
func DefaultSite() SiteConfig {
	return SiteConfig{
		URLTemplate:  "https://www.kabum.com.br/hardware/placa-de-video-vga/placa-de-video-nvidia?page_number={page}&page_size={size}&facet_filters=&sort=most_searched",
		PageSize:     20,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		CookieDomain: ".kabum.com.br",
		DataSelector: "script#__NEXT_DATA__",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
			"Cache-Control":   "no-cache",
			"Referer":         "https://www.kabum.com.br/",
		},
	}
}

// PageURL renders the listing URL for a 1-based page number.
func (s SiteConfig) PageURL(page int) string {
	return strings.NewReplacer(
		pagePlaceholder, strconv.Itoa(page),
		sizePlaceholder, strconv.Itoa(s.PageSize),
	).Replace(s.URLTemplate)
}

// Merge overlays the non-zero fields of other onto s.
// Headers are merged key by key.
func (s *SiteConfig) Merge(other *SiteConfig) {
	if other == nil {
		return
	}
	if other.URLTemplate != "" {
		s.URLTemplate = other.URLTemplate
	}
	if other.PageSize > 0 {
		s.PageSize = other.PageSize
	}
	if other.UserAgent != "" {
		s.UserAgent = other.UserAgent
	}
	if other.Cookies != "" {
		s.Cookies = other.Cookies
	}
	if other.CookieDomain != "" {
		s.CookieDomain = other.CookieDomain
	}
	if other.DataSelector != "" {
		s.DataSelector = other.DataSelector
	}
	if len(other.Headers) > 0 {
		merged := make(map[string]string, len(s.Headers)+len(other.Headers))
		for k, v := range s.Headers {
			merged[k] = v
		}
		for k, v := range other.Headers {
			merged[k] = v
		}
		s.Headers = merged
	}
}

// LoadSiteProfile reads a YAML site profile.
func LoadSiteProfile(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site profile at '%s': %w", path, err)
	}
	var profile SiteConfig
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse site profile: %w", err)
	}
	return &profile, nil
}
