package language

import "strings"

type entry struct {
	code2     string // ISO 639-1, as used by LibreTranslate
	code3     string // ISO 639-2/B or /T
	alt3      string // the other ISO 639-2 form, e.g. "fre" vs "fra"
	tesseract string // traineddata name
	display   string
	words     []string
}

var languages = []entry{
	{"en", "eng", "", "eng", "English", []string{"english"}},
	{"es", "spa", "", "spa", "Spanish", []string{"spanish", "espanol"}},
	{"fr", "fra", "fre", "fra", "French", []string{"french", "francais"}},
	{"de", "deu", "ger", "deu", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "ita", "Italian", []string{"italian"}},
	{"pt", "por", "", "por", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "jpn", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "kor", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "chi_sim", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "rus", "Russian", []string{"russian"}},
	{"ar", "ara", "", "ara", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "hin", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "nld", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "pol", "Polish", []string{"polish"}},
	{"sv", "swe", "", "swe", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "dan", "Danish", []string{"danish"}},
	{"no", "nor", "", "nor", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "fin", "Finnish", []string{"finnish"}},
	{"tr", "tur", "", "tur", "Turkish", []string{"turkish"}},
	{"uk", "ukr", "", "ukr", "Ukrainian", []string{"ukrainian"}},
	{"vi", "vie", "", "vie", "Vietnamese", []string{"vietnamese"}},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		for _, key := range append([]string{e.code2, e.code3, e.alt3, e.tesseract}, e.words...) {
			if key != "" {
				m[key] = e
			}
		}
	}
	return m
}()

func lookup(code string) *entry {
	return index[strings.ToLower(strings.TrimSpace(code))]
}

// Translation returns the ISO 639-1 code for a known language. Unknown
// two-letter codes pass through; anything else yields "".
func Translation(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// Tesseract converts a "+"-separated language list into tesseract's -l
// argument. Known languages map to their traineddata names, unknown names
// pass through unchanged and duplicates are dropped. An empty list is "eng".
func Tesseract(spec string) string {
	var out []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(spec, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		if e := lookup(part); e != nil {
			name = e.tesseract
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return "eng"
	}
	return strings.Join(out, "+")
}

// DisplayName returns a human-readable name, or the uppercased code when the
// language is not known.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
