package scraper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"freestylecal/internal/domain/event"
)

func TestDefaultProfilesLoad(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}

	want := map[string]int{
		"redbull":    4,
		"fms":        7,
		"godlevel":   5,
		"supremacia": 6,
		"tickets":    3,
	}
	if len(profiles) != len(want) {
		t.Fatalf("LoadProfiles() len = %d, want %d", len(profiles), len(want))
	}
	for _, p := range profiles {
		n, ok := want[p.Name]
		if !ok {
			t.Fatalf("unexpected profile %q", p.Name)
		}
		if len(p.Fallback) != n {
			t.Fatalf("%s fallback len = %d, want %d", p.Name, len(p.Fallback), n)
		}
		for _, fb := range p.Fallback {
			e := fb.toEvent(p.Organizer)
			if !event.Validate(&e) {
				t.Fatalf("%s fallback %q is not valid", p.Name, fb.Name)
			}
			if !event.IsCanonicalDate(e.Date) {
				t.Fatalf("%s fallback %q date %q is not canonical", p.Name, fb.Name, e.Date)
			}
		}
	}
}

func TestParseProfilesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"version":   "version = 2\n[[profiles]]\nname = \"x\"\n",
		"empty":     "version = 1\n",
		"organizer": "version = 1\n[[profiles]]\nname = \"x\"\ncontainers=[\"a\"]\ntitle_selectors=[\"h1\"]\n[[profiles.pages]]\nurl=\"http://x\"\n",
		"pages":     "version = 1\n[[profiles]]\nname = \"x\"\norganizer=\"X\"\ncontainers=[\"a\"]\ntitle_selectors=[\"h1\"]\n",
		"duplicate": "version = 1\n" + strings.Repeat("[[profiles]]\nname = \"x\"\norganizer=\"X\"\ncontainers=[\"a\"]\ntitle_selectors=[\"h1\"]\n[[profiles.pages]]\nurl=\"http://x\"\n", 2),
		"fallback":  "version = 1\n[[profiles]]\nname = \"x\"\norganizer=\"X\"\ncontainers=[\"a\"]\ntitle_selectors=[\"h1\"]\n[[profiles.pages]]\nurl=\"http://x\"\n[[profiles.fallback]]\nname=\"no date\"\n",
		"syntax":    "version = \n",
	}
	for name, raw := range cases {
		if _, err := ParseProfiles([]byte(raw)); err == nil {
			t.Fatalf("ParseProfiles(%s) expected error", name)
		}
	}
}

func TestLoadProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	raw := "version = 1\n[[profiles]]\nname = \" Local \"\norganizer = \"Local Crew\"\ncontainers = [\".ev\"]\ntitle_selectors = [\"h2\"]\n[[profiles.pages]]\nurl = \"http://127.0.0.1/ev\"\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "local" || profiles[0].Label != "local" {
		t.Fatalf("LoadProfiles() = %#v", profiles)
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("LoadProfiles(missing) expected error")
	}
}

func TestSelectProfiles(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}

	selected, err := SelectProfiles(profiles, []string{"Tickets", "fms"})
	if err != nil {
		t.Fatalf("SelectProfiles() error = %v", err)
	}
	if len(selected) != 2 || selected[0].Name != "fms" || selected[1].Name != "tickets" {
		t.Fatalf("SelectProfiles() = %v", selected)
	}

	all, err := SelectProfiles(profiles, nil)
	if err != nil || len(all) != len(profiles) {
		t.Fatalf("SelectProfiles(nil) = %d, %v", len(all), err)
	}

	if _, err := SelectProfiles(profiles, []string{"urban"}); err == nil {
		t.Fatalf("SelectProfiles(unknown) expected error")
	}
}

func TestLoadProfilesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	raw := `version: 1
profiles:
  - name: Barrio
    organizer: Barrio Crew
    default_country: Chile
    containers: [".ev"]
    title_selectors: ["h2"]
    pages:
      - url: http://127.0.0.1/ev
        country: Chile
    fallback:
      - name: Barrio Cup
        date: "2025-12-01"
        city: Santiago
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("LoadProfiles() = %#v", profiles)
	}
	p := profiles[0]
	if p.Name != "barrio" || p.DefaultCountry != "Chile" || p.Pages[0].Country != "Chile" || len(p.Fallback) != 1 {
		t.Fatalf("profile = %#v", p)
	}

	if _, err := ParseProfilesYAML([]byte("version: 1\nprofiles: []\n")); err == nil {
		t.Fatalf("ParseProfilesYAML(empty) expected error")
	}
}
