package engine

import "strings"

// Kind represents the engine's classification of an executed statement. The
// gateway uses it to decide whether a result set description is emitted and
// which command tag completes the response.
type Kind int

const (
	KindOther Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindExplain
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindExplain:
		return "EXPLAIN"
	default:
		return "OTHER"
	}
}

// Classify determines the statement kind from the leading keyword of the
// given SQL text. Leading whitespace and comments are skipped. WITH, FROM and
// VALUES open row-producing statements in the engine's dialect and classify
// as SELECT.
func Classify(query string) Kind {
	switch keyword(query) {
	case "SELECT", "WITH", "FROM", "VALUES":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	case "EXPLAIN":
		return KindExplain
	default:
		return KindOther
	}
}

// keyword returns the first keyword of the statement in upper case, skipping
// whitespace, line comments and block comments.
func keyword(query string) string {
	rest := query
	for {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if strings.HasPrefix(rest, "--") {
			nl := strings.IndexByte(rest, '\n')
			if nl == -1 {
				return ""
			}
			rest = rest[nl+1:]
			continue
		}
		if strings.HasPrefix(rest, "/*") {
			end := strings.Index(rest, "*/")
			if end == -1 {
				return ""
			}
			rest = rest[end+2:]
			continue
		}
		break
	}

	end := len(rest)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			end = i
			break
		}
	}

	return strings.ToUpper(rest[:end])
}
