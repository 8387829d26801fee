package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePrefix turns a literal prefix into a SQL LIKE pattern using '\' as escape.
func LikePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// GlobPrefix turns a literal prefix into a Redis MATCH pattern.
func GlobPrefix(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}
