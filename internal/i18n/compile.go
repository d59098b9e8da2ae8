package i18n

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"

	"github.com/datascry/scry/internal/model"
)

// Compile resolves every language-map field of the sidecar to a single
// language and returns the compiled copy plus info-level notes for each
// fallback. The input is not mutated.
func Compile(sc *model.Sidecar, target string) (*model.Sidecar, []model.Issue) {
	if sc == nil {
		return nil, nil
	}

	c := &compiler{target: target, def: sc.DefaultLanguage}

	out := &model.Sidecar{
		DefaultLanguage: sc.DefaultLanguage,
		Sections:        make(map[string]model.Section, len(sc.Sections)),
		Items:           make(map[string]model.Item, len(sc.Items)),
	}

	for name, section := range sc.Sections {
		compiled := make(model.Section, len(section))
		for field, val := range section {
			if m, ok := asLangMap(val); ok {
				compiled[field] = c.resolve(m, name+"."+field)
			} else {
				compiled[field] = val
			}
		}
		out.Sections[name] = compiled
	}

	for code, item := range sc.Items {
		compiled := item
		if m, ok := item.Description.(model.LangMap); ok {
			compiled.Description = model.PlainText(c.resolve(m, code+".Description"))
		}
		if len(item.Levels) > 0 {
			levels := make(model.Levels, len(item.Levels))
			for _, key := range item.Levels.SortedKeys() {
				label := item.Levels[key]
				if m, ok := label.(model.LangMap); ok {
					levels[key] = model.PlainText(c.resolve(m, code+".Levels."+key))
				} else {
					levels[key] = label
				}
			}
			compiled.Levels = levels
		}
		out.Items[code] = compiled
	}

	return out, c.notes
}

// compiler tracks the language preferences and accumulated fallback notes
// of one Compile run.
type compiler struct {
	target string
	def    string
	notes  []model.Issue
}

// resolve picks a single translation from a language map and records a
// note when the target language was unavailable.
func (c *compiler) resolve(m model.LangMap, field string) string {
	if len(m) == 0 {
		return ""
	}

	if tag, ok := lookupLanguage(m, c.target); ok {
		if tag != c.target {
			c.note(field, tag, fmt.Sprintf("matched %q for target %q", tag, c.target))
		}
		return m[tag]
	}

	if c.def != "" {
		if tag, ok := lookupLanguage(m, c.def); ok {
			c.note(field, tag, fmt.Sprintf("target %q unavailable, used default language %q", c.target, tag))
			return m[tag]
		}
	}

	first := m.Languages()[0]
	c.note(field, first, fmt.Sprintf("target %q unavailable, used first available language %q", c.target, first))
	return m[first]
}

func (c *compiler) note(field, tag, message string) {
	c.notes = append(c.notes, model.Issue{
		Code:     model.CodeLanguageFallback,
		Severity: model.SeverityInfo,
		Message:  message,
		Evidence: field + "=" + tag,
	})
	sort.SliceStable(c.notes, func(i, j int) bool { return c.notes[i].Evidence < c.notes[j].Evidence })
}

// lookupLanguage finds the map key best matching the wanted tag: exact key
// match first, then BCP 47 matching (so "en" satisfies a map keyed "en-US"
// and vice versa).
func lookupLanguage(m model.LangMap, want string) (string, bool) {
	if want == "" {
		return "", false
	}
	if _, ok := m[want]; ok {
		return want, true
	}

	wantTag, err := language.Parse(want)
	if err != nil {
		return "", false
	}

	keys := m.Languages()
	tags := make([]language.Tag, 0, len(keys))
	valid := make([]string, 0, len(keys))
	for _, key := range keys {
		tag, err := language.Parse(key)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		valid = append(valid, key)
	}
	if len(tags) == 0 {
		return "", false
	}

	matcher := language.NewMatcher(tags)
	_, idx, conf := matcher.Match(wantTag)
	if conf == language.No {
		return "", false
	}
	return valid[idx], true
}

// asLangMap reports whether a decoded JSON section value has language-map
// shape: a non-empty object whose values are all strings.
func asLangMap(v any) (model.LangMap, bool) {
	raw, ok := v.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, false
	}
	m := make(model.LangMap, len(raw))
	for k, val := range raw {
		s, ok := val.(string)
		if !ok {
			return nil, false
		}
		m[k] = s
	}
	return m, true
}
