package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Profile bundles the settings of one corpus feed.
type Profile struct {
	Name        string
	Description string

	// Index is the target index. Empty means the caller must supply one.
	Index string

	// Source is the default source root.
	Source string

	// Formats restricts the extractors used. Empty allows every format.
	Formats []domain.Format

	MaxWords          int
	BatchSize         int
	LanguageTag       bool
	Dense             bool
	GenerateQuestions bool
}

// Allows reports whether the profile ingests files of format f.
func (p Profile) Allows(f domain.Format) bool {
	if len(p.Formats) == 0 {
		return true
	}
	return slices.Contains(p.Formats, f)
}

// Built-in profile names.
const (
	ProfileBeast     = "beast"
	ProfileIndex     = "index"
	ProfileWikipedia = "wikipedia"
)

// BuiltinProfiles returns the profiles shipped with feeder.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		ProfileBeast: {
			Name:        ProfileBeast,
			Description: "PDF and DOCX reports with .info sidecars, language tagged, dense",
			Index:       "dpr_doc",
			Source:      "data",
			Formats:     []domain.Format{domain.FormatPDF, domain.FormatDOCX},
			MaxWords:    200,
			BatchSize:   100,
			LanguageTag: true,
			Dense:       true,
		},
		ProfileIndex: {
			Name:        ProfileIndex,
			Description: "JSON-lines articles with titles into a named index, long passages",
			Formats:     []domain.Format{domain.FormatJSONLines},
			MaxWords:    1000,
			BatchSize:   100,
		},
		ProfileWikipedia: {
			Name:        ProfileWikipedia,
			Description: "Wikipedia JSON-lines dumps, dense",
			Index:       "wikipedia",
			Source:      "data/wikipedia/jo",
			Formats:     []domain.Format{domain.FormatJSONLines},
			MaxWords:    200,
			BatchSize:   100,
			Dense:       true,
		},
	}
}

// Profiles returns the built-in profiles with overrides and additions
// from [profiles.<name>] tables in the config store.
func Profiles(store driven.ConfigStore) map[string]Profile {
	profiles := BuiltinProfiles()
	if store == nil {
		return profiles
	}

	for _, name := range profileNames(store) {
		p, ok := profiles[name]
		if !ok {
			p = Profile{Name: name, MaxWords: 200, BatchSize: 100}
		}
		profiles[name] = overrideProfile(store, p)
	}
	return profiles
}

// LookupProfile returns the named profile.
func LookupProfile(store driven.ConfigStore, name string) (Profile, error) {
	p, ok := Profiles(store)[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown profile %q", domain.ErrNotFound, name)
	}
	return p, nil
}

// SortedProfiles returns the profiles ordered by name.
func SortedProfiles(store driven.ConfigStore) []Profile {
	all := Profiles(store)
	out := make([]Profile, 0, len(all))
	for _, p := range all {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// profileNames lists the distinct <name> parts of profiles.<name>.<field> keys.
func profileNames(store driven.ConfigStore) []string {
	seen := make(map[string]bool)
	var names []string
	for _, key := range store.Keys("profiles.") {
		rest := strings.TrimPrefix(key, "profiles.")
		name, _, ok := strings.Cut(rest, ".")
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func overrideProfile(store driven.ConfigStore, p Profile) Profile {
	r := resolver{store: store}
	prefix := "profiles." + p.Name + "."

	p.Description = r.string("", prefix+"description", p.Description)
	p.Index = r.string("", prefix+"index", p.Index)
	p.Source = r.string("", prefix+"source", p.Source)
	p.MaxWords = r.int("", prefix+"max_words", p.MaxWords)
	p.BatchSize = r.int("", prefix+"batch_size", p.BatchSize)
	p.LanguageTag = r.bool("", prefix+"language_tag", p.LanguageTag)
	p.Dense = r.bool("", prefix+"dense", p.Dense)
	p.GenerateQuestions = r.bool("", prefix+"generate_questions", p.GenerateQuestions)

	if formats := store.GetStringSlice(prefix + "formats"); len(formats) > 0 {
		p.Formats = p.Formats[:0:0]
		for _, f := range formats {
			p.Formats = append(p.Formats, domain.Format(strings.ToLower(f)))
		}
	}
	return p
}
