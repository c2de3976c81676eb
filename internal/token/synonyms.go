package token

import "strings"

// koToEn maps Korean domain terms to their English equivalents: character
// archetypes, settings, genders, creatures. Curated, not generated.
var koToEn = map[string][]string{
	"얀데레":   {"yandere"},
	"츤데레":   {"tsundere"},
	"판타지":   {"fantasy"},
	"로맨스":   {"romance"},
	"학원":    {"school", "academy"},
	"학교":    {"school"},
	"고등학생":  {"highschool", "학생"},
	"메이드":   {"maid"},
	"집사":    {"butler"},
	"뱀파이어":  {"vampire"},
	"엘프":    {"elf"},
	"악마":    {"demon", "devil"},
	"천사":    {"angel"},
	"마법사":   {"mage", "wizard", "witch"},
	"기사":    {"knight"},
	"공주":    {"princess"},
	"왕자":    {"prince"},
	"여자":    {"female", "girl", "woman"},
	"여성":    {"female", "woman"},
	"남자":    {"male", "boy", "man"},
	"남성":    {"male", "man"},
	"오빠":    {"brother", "oppa"},
	"언니":    {"sister", "unnie"},
	"선생님":   {"teacher", "sensei"},
	"학생":    {"student"},
	"로봇":    {"robot", "android"},
	"인공지능":  {"ai", "artificial intelligence"},
	"마녀":    {"witch"},
	"요정":    {"fairy"},
	"드래곤":   {"dragon"},
	"용":     {"dragon"},
	"늑대":    {"wolf"},
	"고양이":   {"cat"},
	"강아지":   {"dog", "puppy"},
	"토끼":    {"rabbit", "bunny"},
}

// enToKo is the reverse direction. Not every mapping is symmetric: some
// English terms fan out to related Korean variants.
var enToKo = map[string][]string{
	"yandere":    {"얀데레"},
	"tsundere":   {"츤데레"},
	"fantasy":    {"판타지"},
	"romance":    {"로맨스"},
	"school":     {"학원", "학교"},
	"academy":    {"학원"},
	"highschool": {"고등학생", "고등학교"},
	"maid":       {"메이드"},
	"butler":     {"집사"},
	"vampire":    {"뱀파이어"},
	"elf":        {"엘프"},
	"demon":      {"악마"},
	"devil":      {"악마"},
	"angel":      {"천사"},
	"mage":       {"마법사"},
	"wizard":     {"마법사"},
	"witch":      {"마녀", "마법사"},
	"knight":     {"기사"},
	"princess":   {"공주"},
	"prince":     {"왕자"},
	"female":     {"여자", "여성"},
	"girl":       {"여자", "소녀"},
	"woman":      {"여자", "여성"},
	"male":       {"남자", "남성"},
	"boy":        {"남자", "소년"},
	"man":        {"남자", "남성"},
	"brother":    {"오빠", "형"},
	"sister":     {"언니", "누나"},
	"teacher":    {"선생님"},
	"sensei":     {"선생님"},
	"student":    {"학생"},
	"robot":      {"로봇"},
	"android":    {"로봇", "안드로이드"},
	"ai":         {"인공지능"},
	"fairy":      {"요정"},
	"dragon":     {"드래곤", "용"},
	"wolf":       {"늑대"},
	"cat":        {"고양이"},
	"dog":        {"강아지", "개"},
	"puppy":      {"강아지"},
	"rabbit":     {"토끼"},
	"bunny":      {"토끼"},
}

// synonyms is the merged bidirectional table.
var synonyms = func() map[string][]string {
	m := make(map[string][]string, len(koToEn)+len(enToKo))
	for k, v := range koToEn {
		m[k] = v
	}
	for k, v := range enToKo {
		m[k] = v
	}
	return m
}()

// ExpandSynonyms appends the direct synonyms of each token. Expansion only
// adds, never removes, and never recurses: a synonym is not re-expanded.
func ExpandSynonyms(tokens []string) []string {
	expanded := make([]string, len(tokens), len(tokens)*2)
	copy(expanded, tokens)
	for _, t := range tokens {
		expanded = append(expanded, synonyms[t]...)
	}
	return expanded
}

// SynonymVariants returns the token followed by its direct synonyms.
func SynonymVariants(tok string) []string {
	variants := []string{tok}
	return append(variants, synonyms[tok]...)
}

// MatchesWithSynonyms reports whether the token or any of its synonyms
// occurs as a substring of haystack. Both sides are expected lowercase.
func MatchesWithSynonyms(haystack, tok string) bool {
	if haystack == "" {
		return false
	}
	if strings.Contains(haystack, tok) {
		return true
	}
	for _, syn := range synonyms[tok] {
		if strings.Contains(haystack, syn) {
			return true
		}
	}
	return false
}
