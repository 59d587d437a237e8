package scraper

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
)

//go:embed profiles.toml
var defaultProfiles []byte

const profilesVersion = 1

// Profile describes how to read one promoter's listing pages.
type Profile struct {
	Name                 string          `toml:"name" yaml:"name"`
	Label                string          `toml:"label" yaml:"label"`
	Organizer            string          `toml:"organizer" yaml:"organizer"`
	BaseURL              string          `toml:"base_url" yaml:"base_url"`
	Pages                []Page          `toml:"pages" yaml:"pages"`
	Containers           []string        `toml:"containers" yaml:"containers"`
	MaxPerSelector       int             `toml:"max_per_selector" yaml:"max_per_selector"`
	TitleSelectors       []string        `toml:"title_selectors" yaml:"title_selectors"`
	MinTitleLength       int             `toml:"min_title_length" yaml:"min_title_length"`
	DateSelectors        []string        `toml:"date_selectors" yaml:"date_selectors"`
	LocationSelectors    []string        `toml:"location_selectors" yaml:"location_selectors"`
	DescriptionSelectors []string        `toml:"description_selectors" yaml:"description_selectors"`
	MinDescriptionLength int             `toml:"min_description_length" yaml:"min_description_length"`
	DescriptionTemplate  string          `toml:"description_template" yaml:"description_template"`
	Keywords             []string        `toml:"keywords" yaml:"keywords"`
	NamePrefix           string          `toml:"name_prefix" yaml:"name_prefix"`
	DefaultCountry       string          `toml:"default_country" yaml:"default_country"`
	DefaultCity          string          `toml:"default_city" yaml:"default_city"`
	DefaultLeague        string          `toml:"default_league" yaml:"default_league"`
	VenueTemplate        string          `toml:"venue_template" yaml:"venue_template"`
	LinkFallback         bool            `toml:"link_fallback" yaml:"link_fallback"`
	Leagues              []Rule          `toml:"leagues" yaml:"leagues"`
	Countries            []Rule          `toml:"countries" yaml:"countries"`
	Cities               []Rule          `toml:"cities" yaml:"cities"`
	Fallback             []FallbackEvent `toml:"fallback" yaml:"fallback"`
}

// Page is one listing URL. Country pins every event found on it; Label
// is exposed to the description template as {page}.
type Page struct {
	URL     string `toml:"url" yaml:"url"`
	Label   string `toml:"label" yaml:"label"`
	Country string `toml:"country" yaml:"country"`
}

// Rule maps lowercase substrings to a named value. A rule without Match
// matches its own lowercased name.
type Rule struct {
	Name    string   `toml:"name" yaml:"name"`
	Match   []string `toml:"match" yaml:"match"`
	Country string   `toml:"country" yaml:"country"`
	City    string   `toml:"city" yaml:"city"`
}

type FallbackEvent struct {
	Name        string `toml:"name" yaml:"name"`
	Date        string `toml:"date" yaml:"date"`
	Time        string `toml:"time" yaml:"time"`
	City        string `toml:"city" yaml:"city"`
	Country     string `toml:"country" yaml:"country"`
	Venue       string `toml:"venue" yaml:"venue"`
	Link        string `toml:"link" yaml:"link"`
	Description string `toml:"description" yaml:"description"`
}

type profileFile struct {
	Version  int       `toml:"version" yaml:"version"`
	Profiles []Profile `toml:"profiles" yaml:"profiles"`
}

// LoadProfiles reads promoter profiles from path, or the built-in set when
// path is empty.
func LoadProfiles(path string) ([]Profile, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ParseProfiles(defaultProfiles)
	}

	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, errs.Wrapf(err, "read profiles %q", trimmed)
	}
	parse := ParseProfiles
	switch strings.ToLower(filepath.Ext(trimmed)) {
	case ".yaml", ".yml":
		parse = ParseProfilesYAML
	}
	profiles, err := parse(raw)
	if err != nil {
		return nil, errs.Wrapf(err, "profiles %q", trimmed)
	}
	return profiles, nil
}

// ParseProfiles decodes a TOML profiles document.
func ParseProfiles(raw []byte) ([]Profile, error) {
	var file profileFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, errs.Wrap(err, "decode profiles")
	}
	return normalizeProfiles(file)
}

// ParseProfilesYAML decodes the same document written as YAML.
func ParseProfilesYAML(raw []byte) ([]Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errs.Wrap(err, "decode yaml profiles")
	}
	return normalizeProfiles(file)
}

func normalizeProfiles(file profileFile) ([]Profile, error) {
	if file.Version != profilesVersion {
		return nil, fmt.Errorf("unsupported profiles version %d: expected version = %d", file.Version, profilesVersion)
	}
	if len(file.Profiles) == 0 {
		return nil, errors.New("at least one profile is required")
	}

	seen := make(map[string]struct{}, len(file.Profiles))
	for i := range file.Profiles {
		p := &file.Profiles[i]
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		if err := validateProfile(*p); err != nil {
			return nil, err
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("profiles.%s: duplicate name", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Label == "" {
			p.Label = p.Name
		}
	}
	return file.Profiles, nil
}

func validateProfile(p Profile) error {
	if p.Name == "" {
		return errors.New("profiles: name is required")
	}
	prefix := "profiles." + p.Name
	if strings.TrimSpace(p.Organizer) == "" {
		return errors.New(prefix + ".organizer is required")
	}
	if len(p.Pages) == 0 {
		return errors.New(prefix + ": at least one page is required")
	}
	for _, page := range p.Pages {
		if strings.TrimSpace(page.URL) == "" {
			return errors.New(prefix + ".pages: url is required")
		}
	}
	if len(p.Containers) == 0 {
		return errors.New(prefix + ".containers is required")
	}
	if len(p.TitleSelectors) == 0 {
		return errors.New(prefix + ".title_selectors is required")
	}
	if p.MaxPerSelector < 0 || p.MinTitleLength < 0 || p.MinDescriptionLength < 0 {
		return errors.New(prefix + ": limits must not be negative")
	}
	for i, fb := range p.Fallback {
		candidate := fb.toEvent(p.Organizer)
		if !event.Validate(&candidate) {
			return fmt.Errorf("%s.fallback[%d]: name and date are required", prefix, i)
		}
	}
	return nil
}

// SelectProfiles keeps the named profiles in their declared order. An empty
// selection keeps everything.
func SelectProfiles(profiles []Profile, only []string) ([]Profile, error) {
	if len(only) == 0 {
		return profiles, nil
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		if n := strings.ToLower(strings.TrimSpace(name)); n != "" {
			wanted[n] = false
		}
	}
	if len(wanted) == 0 {
		return profiles, nil
	}

	out := make([]Profile, 0, len(wanted))
	for _, p := range profiles {
		if _, ok := wanted[p.Name]; ok {
			wanted[p.Name] = true
			out = append(out, p)
		}
	}
	for name, found := range wanted {
		if !found {
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return out, nil
}

func (fb FallbackEvent) toEvent(organizer string) event.Event {
	return event.Event{
		Name:         fb.Name,
		Date:         fb.Date,
		Time:         fb.Time,
		City:         fb.City,
		Country:      fb.Country,
		Venue:        fb.Venue,
		Organizer:    organizer,
		OfficialLink: fb.Link,
		Description:  fb.Description,
	}.Normalize()
}

func (r Rule) matches(lowerText string) bool {
	if lowerText == "" {
		return false
	}
	if len(r.Match) == 0 {
		return strings.Contains(lowerText, strings.ToLower(r.Name))
	}
	for _, m := range r.Match {
		if m != "" && strings.Contains(lowerText, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
