package service

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DynamicFieldPrefix: префикс пользовательских полей тикета (field_<имя>).
const DynamicFieldPrefix = "field_"

// Правило синонимов: любой из вариантов -> канонический токен.
// Варианты внутри правила: от длинных к коротким.
type synonymRule struct {
	token    string
	variants []string
}

// Порядок важен: ранние правила «съедают» подстроки раньше поздних.
var synonymRules = []synonymRule{
	{"customerEmail", []string{"customeremail", "kundensepost", "kundepost", "kundemail"}},
	{"customerExternalId", []string{"customerexternalid", "customernumber", "kundnummer", "kundnr"}},
	{"customer", []string{"customername", "kundensnamn", "kundnamn"}},
	{"email", []string{"epostadress", "emailadress", "email", "epost", "mejl", "mail"}},
	{"phoneNumber", []string{"phonenumber", "telefonnummer", "mobilnummer", "telefon", "mobil", "phone"}},
	{"firstName", []string{"firstname", "förnamn", "fornamn"}},
	{"lastName", []string{"lastname", "efternamn", "surname"}},
	{"firstName", []string{"namn", "name"}},
	{"address", []string{"gatuadress", "address", "adress"}},
	{"postalCode", []string{"postalcode", "postnummer", "zipcode", "postnr", "zip"}},
	{"city", []string{"postort", "city", "stad", "ort"}},
	{"country", []string{"country", "land"}},
	{"dateOfBirth", []string{"dateofbirth", "födelsedatum", "födelsedag", "birthdate", "birthday", "född"}},
	{"newsletter", []string{"newsletter", "nyhetsbrev"}},
	{"loyal", []string{"lojalitet", "stamkund", "loyalty", "loyal", "lojal"}},
	{"title", []string{"subject", "rubrik", "title", "titel", "ämne"}},
	{"description", []string{"description", "beskrivning", "desc"}},
	{"status", []string{"tillstånd", "status"}},
	{"dueDate", []string{"förfallodatum", "förfallodag", "slutdatum", "deadline", "duedate"}},
	{"ski", []string{"skidor", "skida", "ski"}},
	{"binding", []string{"bindning", "binding"}},
	{"soleLength", []string{"solelength", "sullängd", "sulmått", "sulmatt"}},
	{"serviceType", []string{"servicetype", "tjänstetyp", "servicetyp", "tjänst"}},
	{"comment", []string{"anteckning", "kommentar", "notering", "comment"}},
	{"mountingPoint", []string{"monteringspunkt", "mountingpoint", "montering"}},
}

var reNotKeyChar = regexp.MustCompile(`[^a-z0-9åäö]+`)

// maxNormalizePasses ограничивает повторные проходы NormalizeFieldName.
const maxNormalizePasses = 8

// NormalizeFieldName приводит заголовок колонки к сравнимому токену.
// field_-имена только переводятся в нижний регистр.
//
// Соседние токены могут склеиться в вариант другого правила
// ("customer" + "email" -> "customeremail"), поэтому проход повторяется,
// пока результат не перестанет меняться.
func NormalizeFieldName(name string) string {
	s := normalizeOnce(name)
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizeOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizeOnce(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(lower, DynamicFieldPrefix) {
		return lower
	}

	s := reNotKeyChar.ReplaceAllString(foldDiacritics(lower), "")
	if s == "" {
		return ""
	}

	// Заменённые куски прячем за маркерами \x00<i>\x01: в них нет [a-z],
	// так что последующие правила не перетирают уже найденные токены.
	for i, rule := range synonymRules {
		marker := "\x00" + string(rune('A'+i)) + "\x01"
		for _, v := range rule.variants {
			s = strings.ReplaceAll(s, v, marker)
		}
	}
	if !strings.Contains(s, "\x00") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\x00' && i+2 < len(s) && s[i+2] == '\x01' {
			b.WriteString(synonymRules[s[i+1]-'A'].token)
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// foldDiacritics: é -> e, ü -> u и т.п.; å, ä, ö остаются как есть.
func foldDiacritics(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'å', 'ä', 'ö':
			b.WriteRune(r)
			continue
		}
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		d := []rune(norm.NFD.String(string(r)))
		b.WriteRune(d[0])
	}
	return b.String()
}
