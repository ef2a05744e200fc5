package language

import "fmt"

// Language is a transcription language offered by the caption menu
type Language struct {
	Code       string // "auto" or an ISO 639 code
	Name       string // English name
	NativeName string // name in the language itself
}

// Auto asks the recognizer to detect the spoken language
var Auto = Language{Code: "auto", Name: "Auto-detect", NativeName: "Auto"}

// languages is the fixed menu, in display order
var languages = []Language{
	Auto,
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "yue", Name: "Cantonese", NativeName: "粵語"},
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(languages)+1)
	codeIndex[""] = Auto
	for _, lang := range languages {
		codeIndex[lang.Code] = lang
	}
}

// FromCode returns the Language for the given code.
// Returns Auto if code is not found.
func FromCode(code string) Language {
	if lang, ok := codeIndex[code]; ok {
		return lang
	}
	return Auto
}

// Parse is FromCode for user input: unknown codes are an error
func Parse(code string) (Language, error) {
	lang, ok := codeIndex[code]
	if !ok {
		return Language{}, fmt.Errorf("unsupported language %q (supported: %v)", code, Codes())
	}
	return lang, nil
}

// List returns all menu entries, Auto first
func List() []Language {
	result := make([]Language, len(languages))
	copy(result, languages)
	return result
}

// Codes returns all language codes including "auto"
func Codes() []string {
	codes := make([]string, len(languages))
	for i, lang := range languages {
		codes[i] = lang.Code
	}
	return codes
}

// IsValidCode returns true if the code is recognized (empty means auto)
func IsValidCode(code string) bool {
	_, ok := codeIndex[code]
	return ok
}

// Label is the menu text for a language
func (l Language) Label() string {
	if l.Code == Auto.Code || l.NativeName == l.Name {
		return l.Name
	}
	return fmt.Sprintf("%s (%s)", l.Name, l.NativeName)
}
