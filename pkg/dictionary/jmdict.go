package dictionary

import "strings"

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// FromJMdict flattens jmdict-simplified entries into one Entry per written
// form (every kanji and kana spelling). Common words get difficulty 1,
// the rest 2.
func FromJMdict(entries []JMdictEntry) []Entry {
	var out []Entry
	for _, je := range entries {
		var glosses, pos []string
		for _, s := range je.Sense {
			for _, g := range s.Gloss {
				if g.Lang != "" && g.Lang != "eng" {
					continue
				}
				if t := strings.TrimSpace(g.Text); t != "" {
					glosses = append(glosses, t)
				}
			}
			pos = append(pos, s.PartOfSpeech...)
		}
		if len(glosses) == 0 {
			continue
		}
		var partOfSpeech string
		if len(pos) > 0 {
			partOfSpeech = pos[0]
		}
		for _, el := range append(append([]JMdictElement(nil), je.Kanji...), je.Kana...) {
			difficulty := 2
			if el.Common {
				difficulty = 1
			}
			out = append(out, Entry{
				Word:         el.Text,
				Translations: append([]string(nil), glosses...),
				PartOfSpeech: partOfSpeech,
				Difficulty:   difficulty,
			})
		}
	}
	return out
}
