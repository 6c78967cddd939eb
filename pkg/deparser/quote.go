package deparser

import (
	"regexp"
	"strings"
)

// keywords that may not appear bare as an identifier. Unreserved keywords are
// fine as identifiers and are left out.
var nonUnreservedKeywords = map[string]struct{}{}

func init() {
	for _, kw := range strings.Fields(`
		all analyse analyze and any array as asc asymmetric both case cast check collate
		column constraint create current_catalog current_date current_role current_time
		current_timestamp current_user default deferrable desc distinct do else end except
		false fetch for foreign from grant group having in initially intersect into lateral
		leading limit localtime localtimestamp not null offset on only or order placing
		primary references returning select session_user some symmetric table then to
		trailing true union unique user using variadic when where window with
		authorization binary collation concurrently cross current_schema freeze full ilike
		inner is isnull join left like natural notnull outer overlaps right similar
		tablesample verbose
		between bigint bit boolean char character coalesce dec decimal exists extract float
		greatest grouping inout int integer interval least national nchar none normalize
		nullif numeric out overlay position precision real row setof smallint substring time
		timestamp treat trim values varchar xmlattributes xmlconcat xmlelement xmlexists
		xmlforest xmlnamespaces xmlparse xmlpi xmlroot xmlserialize xmltable`) {
		nonUnreservedKeywords[kw] = struct{}{}
	}
}

// QuoteIdentifier quotes ident if it could not be read back as the same
// identifier without quotes: anything other than lower case letters, digits and
// underscores, a leading digit, or a keyword.
func QuoteIdentifier(ident string) string {
	if isSafeIdentifier(ident) {
		return ident
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func isSafeIdentifier(ident string) bool {
	if ident == "" {
		return false
	}
	for i, c := range ident {
		switch {
		case c >= 'a' && c <= 'z', c == '_':
		case c >= '0' && c <= '9', c == '$':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	_, isKeyword := nonUnreservedKeywords[ident]
	return !isKeyword
}

// QuoteLiteral renders s as a string literal. Backslashes switch the literal
// to the escape string syntax so the text means the same regardless of
// standard_conforming_strings.
func QuoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	if strings.ContainsRune(s, '\\') {
		b.WriteByte('E')
	}
	b.WriteByte('\'')
	for _, c := range s {
		switch c {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

var bareVersion = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// QuoteVersion renders an extension version. A version that reads as a single
// numeric constant, such as 1 or 1.2, stays bare. Anything else, 9.0-1 and
// 1.2.3 included, goes through QuoteIdentifier.
func QuoteVersion(version string) string {
	if bareVersion.MatchString(version) {
		return version
	}
	return QuoteIdentifier(version)
}
