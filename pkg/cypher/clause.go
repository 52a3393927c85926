package cypher

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies a Cypher clause keyword.
type Kind int

// Clause kinds, in the order they are rendered within one partition.
const (
	KindMatch Kind = iota
	KindOptionalMatch
	KindWhere
	KindCreate
	KindSet
	KindDelete
	KindWith
	KindReturn
	KindOrder
	KindSkip
	KindLimit

	kindBreak
)

var kindNames = map[Kind]string{
	KindMatch:         "MATCH",
	KindOptionalMatch: "OPTIONAL MATCH",
	KindWhere:         "WHERE",
	KindCreate:        "CREATE",
	KindSet:           "SET",
	KindDelete:        "DELETE",
	KindWith:          "WITH",
	KindReturn:        "RETURN",
	KindOrder:         "ORDER BY",
	KindSkip:          "SKIP",
	KindLimit:         "LIMIT",
	kindBreak:         "BREAK",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type clause struct {
	kind Kind
	text string
	not  bool
}

// partitions splits clauses on Break markers, dropping empty partitions.
func partitions(clauses []clause) [][]clause {
	var out [][]clause
	var cur []clause
	for _, c := range clauses {
		if c.kind == kindBreak {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// renderPartition sorts one partition by kind and merges same-kind neighbours.
func renderPartition(part []clause) []string {
	sorted := slices.Clone(part)
	slices.SortStableFunc(sorted, func(a, b clause) int { return int(a.kind) - int(b.kind) })

	var out []string
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].kind == sorted[i].kind {
			j++
		}
		out = append(out, renderGroup(sorted[i].kind, sorted[i:j])...)
		i = j
	}
	return out
}

func renderGroup(kind Kind, group []clause) []string {
	texts := make([]string, len(group))
	for i, c := range group {
		texts[i] = c.text
	}

	switch kind {
	case KindOptionalMatch:
		out := make([]string, len(texts))
		for i, t := range texts {
			out[i] = "OPTIONAL MATCH " + t
		}
		return out
	case KindWhere:
		conds := make([]string, len(group))
		for i, c := range group {
			if c.not {
				conds[i] = "NOT(" + c.text + ")"
			} else {
				conds[i] = "(" + c.text + ")"
			}
		}
		return []string{"WHERE " + strings.Join(conds, " AND ")}
	case KindSkip, KindLimit:
		// last one wins
		return []string{kind.String() + " " + texts[len(texts)-1]}
	default:
		return []string{kind.String() + " " + strings.Join(texts, ", ")}
	}
}
